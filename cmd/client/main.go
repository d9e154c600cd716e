package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
)

var (
	addr = flag.String("addr", "localhost:8080", "http service address")
	room = flag.String("room", "general", "room to join")
)

func main() {
	flag.Parse()

	email := prompt("Enter your email: ")
	name := prompt("Enter your display name: ")

	token := login(email, name)
	conn := connectWebSocket(token)
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go readEvents(conn, done)

	joinRoom(conn, *room)

	fmt.Println("Write Messages (Press Enter to Send):")
	writeMessages(conn, interrupt, done)
}

func prompt(label string) string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print(label)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

func login(email, name string) string {
	payload, _ := json.Marshal(map[string]string{"email": email, "name": name})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/login", *addr), "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Login failed: HTTP %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Fatalf("Failed to decode login response: %v", err)
	}
	return body.AccessToken
}

func connectWebSocket(token string) *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	log.Printf("Connecting to %s", u.Host)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	log.Println("Connected to WebSocket server.")
	return conn
}

func joinRoom(conn *websocket.Conn, room string) {
	if err := conn.WriteJSON(domain.Event{Type: domain.EventJoinRoom, Room: room}); err != nil {
		log.Fatalf("Failed to join room: %v", err)
	}
}

func readEvents(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var ev domain.Event
		if err := conn.ReadJSON(&ev); err != nil {
			log.Printf("Error reading event: %v", err)
			return
		}

		switch ev.Type {
		case domain.EventRoomJoined:
			fmt.Printf("\n--- joined %s (%d messages of history) ---\n", ev.Room, len(ev.History))
			for _, m := range ev.History {
				printMessage(m)
			}
		case domain.EventNewMessage:
			if ev.Message != nil {
				printMessage(*ev.Message)
			}
		case domain.EventSystem:
			fmt.Printf("* %s\n", ev.Content)
		case domain.EventError:
			fmt.Printf("! error: %s\n", ev.Error)
		}
	}
}

func printMessage(m domain.ChatMessage) {
	sender := m.Sender
	if m.Bot {
		sender += " (bot)"
	}
	fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), sender, m.Content)
}

func writeMessages(conn *websocket.Conn, interrupt chan os.Signal, done chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during close: %v", err)
			}
			return
		default:
			if scanner.Scan() {
				content := scanner.Text()
				if content == "" {
					continue
				}

				if err := conn.WriteJSON(domain.Event{Type: domain.EventSendMessage, Content: content}); err != nil {
					log.Printf("Error sending message: %v", err)
					return
				}
			}
		}
	}
}

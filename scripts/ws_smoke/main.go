package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/tunesync-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "listener identity to announce with hello")
	name := flag.String("name", "smoke-room", "room name to create")
	uri := flag.String("uri", "spotify:track:smoke", "track uri to enqueue")
	text := flag.String("text", "hello from smoke test", "chat text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: raw}); err != nil {
			return fmt.Errorf("send %s: %w", msgType, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeHello, proto.HelloData{User: *user}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeCreateRoom, proto.CreateRoomData{Name: *name}); err != nil {
		return err
	}

	roomID := ""
	enqueued := false
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("received: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error: %s (%s)", outbound.Error.Msg, outbound.Error.Code)
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}

		switch outbound.Event {
		case proto.EventRoomCreated:
			var created proto.EventRoomCreatedData
			if err := json.Unmarshal(raw, &created); err != nil {
				return fmt.Errorf("unmarshal room id: %w", err)
			}
			roomID = created.Room
			fmt.Printf("room created: %s\n", roomID)
			if err := send(proto.InboundTypeJoin, proto.JoinData{Room: roomID}); err != nil {
				return err
			}
		case proto.EventRoomFullInfo:
			var snapshot proto.EventRoomFullInfoData
			if err := json.Unmarshal(raw, &snapshot); err != nil {
				return fmt.Errorf("unmarshal snapshot: %w", err)
			}
			fmt.Printf("snapshot: members=%v queue=%d shuffled=%d current=%v\n",
				snapshot.Members, len(snapshot.Queue), len(snapshot.ShuffledQueue), snapshot.CurrentTrack)
			if snapshot.CurrentTrack == nil && roomID != "" && !enqueued {
				enqueued = true
				if err := send(proto.InboundTypeEnqueue, proto.EnqueueData{Room: roomID, URI: *uri}); err != nil {
					return err
				}
			} else if snapshot.CurrentTrack != nil {
				if err := send(proto.InboundTypeChat, proto.ChatData{Room: roomID, Text: *text}); err != nil {
					return err
				}
			}
		case proto.EventChat:
			var chat proto.EventChatData
			if err := json.Unmarshal(raw, &chat); err != nil {
				return fmt.Errorf("unmarshal chat: %w", err)
			}
			fmt.Printf("chat: room=%s user=%s text=%q ts=%d\n", chat.Room, chat.User, chat.Text, chat.TS)
			return nil
		}
	}
}

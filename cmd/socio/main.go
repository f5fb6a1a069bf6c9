// Command socio is a headless client: it registers or adopts a credential,
// enriches the account's conversations, tracks one thread, and prints state
// changes as they happen.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"socio/internal/assets"
	"socio/internal/backend"
	"socio/internal/chatsync"
	"socio/internal/config"
	"socio/internal/enrich"
	"socio/internal/session"
	"socio/internal/store"
)

func main() {
	token := flag.String("token", "", "existing bearer credential; skips registration")
	username := flag.String("username", "", "username to register when no token is given")
	track := flag.String("track", "", "counterpart username whose conversation to track")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cache := assets.NewCache(
		assets.WithThumbnailSize(cfg.AssetThumbnailSize),
		assets.WithMaxPayloadBytes(cfg.AssetMaxPayloadMB<<20),
	)
	client := backend.NewClient(cfg.BackendURL, time.Duration(cfg.RequestTimeoutMS)*time.Millisecond)
	pipeline := enrich.NewPipeline(client, cache)
	state := store.NewStore(store.NewRedisPreferences(cfg.RedisURL), time.Duration(cfg.AlertTTLMS)*time.Millisecond)
	engine := chatsync.NewEngine(client, state, time.Duration(cfg.PollIntervalMS)*time.Millisecond)
	sessions := session.NewManager(client, pipeline, cache, state)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	switch {
	case *token != "":
		if who, ok := session.LocalIdentity(*token); ok {
			fmt.Printf("resuming session for %s\n", who)
		}
		if err := sessions.AdoptToken(ctx, *token); err != nil {
			log.Fatalf("Failed to adopt credential: %v", err)
		}
	case *username != "":
		in := backend.RegisterInput{
			Username:       *username,
			DisplayName:    *username,
			ProfilePicture: placeholderAvatar(),
			Password:       "password123",
		}
		if err := sessions.Register(ctx, in); err != nil {
			log.Fatalf("Failed to register: %v", err)
		}
	default:
		log.Fatal("either -token or -username is required")
	}

	me := state.UserDetails()
	fmt.Printf("logged in as %s (%d conversations)\n", me.Username, len(me.ChatIDs))

	threads, err := pipeline.ChatThreads(ctx, me.Username, me.ChatIDs)
	if err != nil {
		log.Fatalf("Failed to enrich conversations: %v", err)
	}
	state.SetThreads(threads)
	for name, t := range threads {
		if last, ok := t.LastMessage(); ok {
			fmt.Printf("  %s: %q\n", name, last.Message)
		} else {
			fmt.Printf("  %s: (no messages)\n", name)
		}
	}

	if *track == "" {
		sessions.Logout()
		return
	}
	thread, ok := threads[*track]
	if !ok {
		log.Fatalf("no conversation with %s", *track)
	}

	events, unsubscribe := state.Subscribe()
	defer unsubscribe()
	key := engine.Select(ctx, me.Username, thread)
	fmt.Printf("tracking %s, type a message and press enter (ctrl-d to quit)\n", key)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if err := engine.Send(ctx, key, me.Username, text, nil); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		}
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			engine.Deselect()
			sessions.Logout()
			return
		case ev := <-events:
			switch ev.Kind {
			case store.EventThreadUpdated:
				if sel := state.SelectedChat(); sel != nil {
					if last, ok := sel.LastMessage(); ok {
						fmt.Printf("[%s] %s: %s\n", sel.Name, last.Sender, last.Message)
					}
				}
			case store.EventAlert:
				if a := state.Alert(); a != nil {
					fmt.Printf("! %s: %s\n", a.Type, a.Message)
				}
			}
		}
	}
}

// placeholderAvatar is the default profile picture for throwaway accounts.
func placeholderAvatar() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

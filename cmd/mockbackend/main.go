// Command mockbackend runs the in-memory backend on a fixed port for local
// development, seeded with two friends and a conversation.
package main

import (
	"flag"
	"fmt"
	"log"

	"socio/internal/backendtest"
	"socio/internal/identity"
)

func main() {
	addr := flag.String("addr", ":8375", "listen address")
	secret := flag.String("jwt-secret", "dev-secret", "JWT signing secret")
	flag.Parse()

	srv, err := backendtest.NewServer(*secret, backendtest.WithMetrics())
	if err != nil {
		log.Fatalf("Failed to create backend: %v", err)
	}

	alice := srv.SeedUser("alice")
	bob := srv.SeedUser("bob")
	key := identity.DeriveConversationKey(alice, bob)
	srv.SeedFriendship(alice, bob, string(key))
	srv.SeedMessages(string(key), alice, bob, 45)
	srv.SeedPost(alice)

	fmt.Printf("mock backend listening on %s (seeded: %s, %s, chat %s)\n", *addr, alice, bob, key)
	log.Fatal(srv.Listen(*addr))
}

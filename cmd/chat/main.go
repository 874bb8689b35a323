package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"

	"coach-backend/internal/client"
	"coach-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		color.Red.Printf("config error: %v\n", err)
		os.Exit(1)
	}

	relayURL := flag.String("url", fmt.Sprintf("http://localhost:%s", cfg.Port), "base URL of the chat relay")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(*relayURL, client.WithTimeout(cfg.ClientTimeout))

	color.Cyan.Println("AI Mental Coach")
	color.Gray.Printf("Talking to %s. Type a message, or /quit to leave.\n\n", *relayURL)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		color.Bold.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		message := strings.TrimSpace(scanner.Text())
		switch message {
		case "":
			continue
		case "/quit", "/exit":
			return
		}

		reply, err := c.SendChatMessage(ctx, message)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			color.Red.Printf("error: %v\n\n", err)
			continue
		}

		color.Green.Print("coach> ")
		fmt.Printf("%s\n\n", reply)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"PCHAT/relay/internal/client"
	"PCHAT/relay/internal/config"
)

const help = "Commands: /clear empties the conversation, /usage shows token totals, /quit exits. Ctrl-C stops a reply."

func main() {
	configPath := pflag.String("config", "config/config.yaml", "path to the YAML config file")
	envPath := pflag.String("env", "config/.env", "path to the dotenv file")
	provider := pflag.String("provider", "", "provider to chat with (overrides client.provider)")
	model := pflag.String("model", "", "model override, must be allowed by the relay")
	noStream := pflag.Bool("no-stream", false, "wait for whole replies instead of streaming")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath, *envPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// Info logs would interleave with the reply text.
	level := "warn"
	if cfg.Log.Level == "debug" {
		level = "debug"
	}
	slog.SetDefault(config.NewLogger(os.Stderr, level))

	if *provider == "" {
		*provider = cfg.Client.Provider
	}
	if *model == "" {
		*model = cfg.Client.Model
	}
	c := client.New(cfg.Client.BaseURL,
		client.WithProvider(*provider),
		client.WithModel(*model),
		client.WithToken(cfg.Client.Token),
	)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Printf("Chatting with %s via %s. %s\n", *provider, cfg.Client.BaseURL, help)
	for {
		input, err := line.Prompt("you> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read input: %v\n", err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case "/quit":
			return
		case "/help":
			fmt.Println(help)
			continue
		case "/clear":
			c.Clear()
			fmt.Println("Conversation cleared.")
			continue
		case "/usage":
			u := c.Usage()
			fmt.Printf("prompt %d, completion %d, total %d tokens\n", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
			continue
		}

		fmt.Print("bot> ")
		if *noStream {
			err = c.Complete(context.Background(), input)
			if err == nil {
				msgs := c.Messages()
				fmt.Print(msgs[len(msgs)-1].Content)
			}
		} else {
			err = submit(c, input)
		}
		fmt.Println()

		switch {
		case errors.Is(err, client.ErrAborted):
			fmt.Println("[stopped]")
		case err != nil:
			fmt.Println(client.ApologyText)
			fmt.Fprintf(os.Stderr, "error: %v\n", c.Err())
		}
	}
}

// submit streams one reply to the terminal. An interrupt during the reply
// stops it instead of ending the program.
func submit(c *client.Client, input string) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupts:
			c.Stop()
		case <-done:
		}
	}()

	return c.Submit(context.Background(), input, func(delta string) {
		fmt.Print(delta)
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/config"
	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/di"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		cfg *config.Config,
		llm core.LLMClient,
		classifier core.Classifier,
		logger *zap.Logger,
	) error {
		defer logger.Sync() //nolint:errcheck
		defer closeClient(llm, logger)

		var in io.Reader = os.Stdin
		if flags.InputFile != "" {
			file, err := os.Open(flags.InputFile)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer file.Close()
			in = file
			logger.Info("Reading email from file", zap.String("file", flags.InputFile))
		} else {
			logger.Info("Reading email from stdin")
		}

		content, err := readMessage(in)
		if err != nil {
			return err
		}

		fmt.Printf("\n=== Email Summary ===\n")
		fmt.Printf("From: %s\n", content.Sender)
		fmt.Printf("Subject: %s\n", content.Subject)
		fmt.Printf("Date: %s\n", content.Date)
		fmt.Printf("Body length: %d bytes\n", len(content.Body))

		fmt.Printf("\n=== Classification ===\n")
		fmt.Printf("Provider: %s\n", cfg.GetLLM().Provider)

		startTime := time.Now()
		result, err := classifier.Classify(context.Background(), content.Body)
		if err != nil {
			return fmt.Errorf("failed to classify email: %w", err)
		}

		fmt.Printf("Company: %s\n", result.CompanyName)
		fmt.Printf("Interaction: %s\n", result.InteractionType)
		fmt.Printf("Website: %s\n", result.Website)
		fmt.Printf("Processing time: %v\n", time.Since(startTime))
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readMessage parses an RFC 822 message and returns its headers and first
// text/plain part.
func readMessage(r io.Reader) (*core.MessageContent, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}
	defer mr.Close()

	content := &core.MessageContent{}
	if subject, err := mr.Header.Subject(); err == nil {
		content.Subject = subject
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		content.Sender = from[0].String()
	}
	if date, err := mr.Header.Date(); err == nil {
		content.Date = date.Format(time.RFC1123Z)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read email part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.EqualFold(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read email body: %w", err)
		}
		content.Body = string(body)
		return content, nil
	}

	return nil, core.ErrNoContent
}

func closeClient(llm core.LLMClient, logger *zap.Logger) {
	if closer, ok := llm.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

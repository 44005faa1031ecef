// Command contactcli submits the contact form from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"erinnerungslicht-backend/pkg/contactform"
	"erinnerungslicht-backend/pkg/i18n"
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:3000", "site base URL")
		name    = flag.String("name", "", "your name")
		mail    = flag.String("email", "", "your email address")
		message = flag.String("message", "", "message text")
		privacy = flag.Bool("privacy", false, "accept the privacy policy")
		lang    = flag.String("lang", "de", "language (de or en)")
		timeout = flag.Duration("timeout", 30*time.Second, "request timeout")
	)
	flag.Parse()

	language, ok := i18n.Parse(*lang)
	if !ok {
		language = i18n.German
	}

	client := contactform.NewClient(*baseURL,
		contactform.WithLanguage(language),
		contactform.WithAnnouncer(contactform.AnnouncerFunc(func(level contactform.Level, msg string) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", level, msg)
		})),
	)

	form := client.NewForm()
	form.Fill(contactform.Input{
		Name:    *name,
		Email:   *mail,
		Message: *message,
		Privacy: *privacy,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// the server rejects forms submitted faster than a person could fill them
	select {
	case <-time.After(time.Until(form.ReadyAt())):
	case <-ctx.Done():
		os.Exit(130)
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	res, err := form.Submit(ctx)
	if err != nil {
		var fe contactform.FieldErrors
		if errors.As(err, &fe) {
			for field, msg := range fe {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch res.Outcome {
	case contactform.OutcomeSent:
		fmt.Println(res.Message)
	case contactform.OutcomeFallback:
		fmt.Println(res.Message)
		fmt.Printf("%s: %s\n", res.FallbackLabel, res.MailtoURL)
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, res.Message)
		for _, e := range res.Errors {
			fmt.Fprintln(os.Stderr, " -", e)
		}
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kart-io/senderhub"
	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/service"
)

type sendFlags struct {
	configFile string
	envPrefix  string
	services   []string
	to         string
	from       string
	subject    string
	text       string
	html       bool
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "senderctl",
		Short:         "Send notifications through mail, Slack, Telegram and HTTP channels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSendCmd(), newServicesCmd())
	return root
}

var sendLongDesc = `Send one message through the channels configured in a YAML file.

Fields the service blocks leave empty are read from the environment, e.g.
SENDERHUB_SLACK_TOKEN or SENDERHUB_MAILGUN_API_KEY. Without --service the
message goes to every configured channel.
`

func newSendCmd() *cobra.Command {
	f := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		Long:  sendLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.configFile == "" {
				return fmt.Errorf("missing --config")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSend(ctx, cmd.OutOrStdout(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configFile, "config", "c", "", "path to the YAML configuration")
	flags.StringVar(&f.envPrefix, "env-prefix", config.DefaultEnvPrefix, "environment prefix of the fallback configuration")
	flags.StringSliceVarP(&f.services, "service", "s", nil, "channel to send through, repeatable")
	flags.StringVar(&f.to, "to", "", "destination: addresses, channel name, chat ID or URL")
	flags.StringVar(&f.from, "from", "", "sender address")
	flags.StringVar(&f.subject, "subject", "", "subject line")
	flags.StringVarP(&f.text, "text", "t", "", "message body, - reads stdin")
	flags.BoolVar(&f.html, "html", false, "send the body as HTML")
	flags.DurationVar(&f.timeout, "timeout", time.Minute, "overall send timeout")
	return cmd
}

func runSend(ctx context.Context, out io.Writer, f *sendFlags) error {
	cfg, err := config.LoadFile(f.configFile)
	if err != nil {
		return err
	}
	env, err := config.DefaultsFromEnv(f.envPrefix)
	if err != nil {
		return err
	}
	cfg.Defaults.Fill(env)

	opts, err := f.messageOptions(os.Stdin)
	if err != nil {
		return err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	hub, err := senderhub.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer hub.Close()

	results, err := hub.DispatchAndWait(ctx, opts)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.Success() {
			status = string(r.Stage)
			failed++
		}
		fmt.Fprintf(out, "%-10s %-13s %s\n", r.Service, status, r.Message)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d channels failed", failed, len(results))
	}
	return nil
}

func (f *sendFlags) messageOptions(stdin io.Reader) (*message.Options, error) {
	opts := message.NewOptions().WithServices(f.services...)
	if f.to != "" {
		opts.WithTo(f.to)
	}
	if f.from != "" {
		opts.WithFrom(f.from)
	}
	if f.subject != "" {
		opts.WithSubject(f.subject)
	}
	text := f.text
	if text == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if text != "" {
		opts.WithText(text)
	}
	if f.html {
		opts.WithHTML(true)
	}
	if opts.IsEmpty() {
		return nil, fmt.Errorf("nothing to send: set --text, --to or --subject")
	}
	return opts, nil
}

func newServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the channel names accepted in configuration and --service",
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range service.IDs() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", id, strings.Join(service.Names(id), ", "))
			}
		},
	}
}

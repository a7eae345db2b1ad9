package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fzft/go-mini-redis/deps/linenoise"
	"github.com/fzft/go-mini-redis/node"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	RedisCliHisFileEnv     = "MINIREDISCLI_HISTFILE"
	RedisCliHisFileDefault = ".minirediscli_history"
)

type CliConnectFlag int

const (
	CCForce CliConnectFlag = 1 << iota // Re-connect if already connected.
	CCQuiet                            // Don't show non-error messages.
)

type CliConnInfo struct {
	hostIp   string
	hostPort int
}

type RedisCliCfg struct {
	connInfo    *CliConnInfo
	timeout     time.Duration
	interactive bool
	output      OutputMode
	prompt      string
}

type RedisCli struct {
	config *RedisCliCfg
	client *node.Client
	out    io.Writer
	errOut io.Writer
}

func cliCmd() *cobra.Command {
	cfg := &RedisCliCfg{connInfo: &CliConnInfo{}}
	var raw, noRaw bool

	cmd := &cobra.Command{
		Use:   "cli [frame]",
		Short: "Send frames to a server, interactively or once",
		Long: "Each line is sent as one frame: +text, -text, :n, $-1 or nil,\n" +
			"anything else is sent as a bulk string.",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case raw:
				cfg.output = OutputRaw
			case noRaw:
				cfg.output = OutputStandard
			case !isatty.IsTerminal(os.Stdout.Fd()):
				cfg.output = OutputRaw
			}

			cli := &RedisCli{config: cfg, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			defer cli.close()

			if len(args) > 0 {
				return cli.sendOnce(cmd.Context(), strings.Join(args, " "))
			}
			return cli.repl(cmd.Context())
		},
	}

	// -h is the hostname, as in redis-cli
	cmd.Flags().Bool("help", false, "help for cli")
	cmd.Flags().StringVarP(&cfg.connInfo.hostIp, "host", "h", "127.0.0.1", "Server hostname")
	cmd.Flags().IntVarP(&cfg.connInfo.hostPort, "port", "p", 6379, "Server port")
	cmd.Flags().DurationVarP(&cfg.timeout, "timeout", "t", node.DefaultDialTimeout, "Dial timeout")
	cmd.Flags().BoolVar(&raw, "raw", false, "Use raw formatting for replies (default when STDOUT is not a tty)")
	cmd.Flags().BoolVar(&noRaw, "no-raw", false, "Force formatted output even when STDOUT is not a tty")
	return cmd
}

func (cli *RedisCli) addr() string {
	return net.JoinHostPort(cli.config.connInfo.hostIp, strconv.Itoa(cli.config.connInfo.hostPort))
}

// connect dials the server unless a connection exists.
// flag: CCForce: connect even if there is already a connected client.
// CCQuiet: don't print errors if the connection fails.
func (cli *RedisCli) connect(ctx context.Context, flag CliConnectFlag) error {
	if cli.client != nil && flag&CCForce == 0 {
		return nil
	}
	cli.close()

	if ctx == nil {
		ctx = context.Background()
	}
	client, err := node.Dial(ctx, cli.addr(), node.ClientOptions{DialTimeout: cli.config.timeout})
	if err != nil {
		if flag&CCQuiet == 0 {
			fmt.Fprintf(cli.errOut, "%s\n", err)
		}
		return err
	}
	cli.client = client
	cli.refreshPrompt()
	return nil
}

func (cli *RedisCli) close() {
	if cli.client != nil {
		cli.client.Close()
		cli.client = nil
	}
	cli.refreshPrompt()
}

func (cli *RedisCli) refreshPrompt() {
	if cli.client == nil {
		cli.config.prompt = "not connected> "
		return
	}
	cli.config.prompt = cli.addr() + "> "
}

func (cli *RedisCli) sendOnce(ctx context.Context, line string) error {
	if err := cli.connect(ctx, 0); err != nil {
		return err
	}
	return cli.issue(line)
}

// issue sends one line as a frame and prints the reply.
func (cli *RedisCli) issue(line string) error {
	f, err := parseLine(line)
	if err != nil {
		fmt.Fprintf(cli.errOut, "(error) %s\n", err)
		return err
	}
	if f == nil {
		return nil
	}

	reply, err := cli.client.Do(f)
	if err != nil {
		// the connection state is unknown after a failed exchange
		cli.close()
		fmt.Fprintf(cli.errOut, "Error: %s\n", err)
		return err
	}
	fmt.Fprintln(cli.out, formatReply(reply, cli.config.output))
	return nil
}

func (cli *RedisCli) repl(ctx context.Context) error {
	cli.config.interactive = true
	cli.connect(ctx, CCQuiet)

	line := linenoise.New()
	defer line.Close()

	historyFile := getDotfilePath(RedisCliHisFileEnv, RedisCliHisFileDefault)
	if historyFile != "" {
		line.HistoryLoad(historyFile)
	}

	for {
		input, err := line.Prompt(cli.config.prompt)
		if errors.Is(err, linenoise.ErrAborted) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if historyFile != "" {
			line.HistorySave(historyFile)
		}

		switch strings.ToLower(input) {
		case "quit", "exit":
			return nil
		case "clear":
			line.ClearScreen()
			continue
		case "connect":
			cli.connect(ctx, CCForce)
			continue
		}

		if cli.client == nil {
			if err := cli.connect(ctx, 0); err != nil {
				continue
			}
		}
		cli.issue(input)
	}
	return nil
}

// getDotfilePath returns the path of a dotfile named by envOverride, or
// dotFilename in the home directory. It returns "" when neither is known.
func getDotfilePath(envOverride, dotFilename string) string {
	if p := os.Getenv(envOverride); p != "" {
		if p == "/dev/null" {
			return ""
		}
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, dotFilename)
}

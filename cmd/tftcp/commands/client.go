package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/config"
	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui"
	transfer_tui "github.com/SpatiumPortae/tftcp/cmd/tftcp/tui/transfer"
	"github.com/SpatiumPortae/tftcp/internal/client"
	"github.com/SpatiumPortae/tftcp/internal/file"
	"github.com/SpatiumPortae/tftcp/internal/stream"
	"github.com/SpatiumPortae/tftcp/protocol/transfer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ------------------------------------------------------- Client ------------------------------------------------------

func Client() *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client <server-address> <read|write> <filename>",
		Short: "Read a file from, or write a file to, a tftcp server",
		Long: `The client command performs a single transfer against a tftcp server.
  read   downloads the file from the server's storage root, saving it locally with the received prefix
  write  uploads the local file to the server's storage root, replacing any existing file`,
		Example: "  tftcp client 127.0.0.1 read notes.txt\n  tftcp client files.example.com:6969 write report.pdf",
		Args:    cobra.MinimumNArgs(3),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("transport", cmd.Flags().Lookup("transport")); err != nil {
				return fmt.Errorf("binding transport flag: %w", err)
			}
			if err := viper.BindPFlag("tui_style", cmd.Flags().Lookup("tui-style")); err != nil {
				return fmt.Errorf("binding tui-style flag: %w", err)
			}

			// Reverse the --yes/-y flag value as it has an inverse relationship
			// with the configuration value 'prompt_overwrite_files'.
			overwriteFlag := cmd.Flags().Lookup("yes")
			if overwriteFlag.Changed {
				shouldOverwrite, _ := strconv.ParseBool(overwriteFlag.Value.String())
				_ = overwriteFlag.Value.Set(strconv.FormatBool(!shouldOverwrite))
			}
			if err := viper.BindPFlag("prompt_overwrite_files", overwriteFlag); err != nil {
				return fmt.Errorf("binding yes flag: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, operation, filename := args[0], args[1], args[2]
			if err := validateAddress(addr); err != nil {
				return fmt.Errorf("%w: (%s) is not a valid server address", err, addr)
			}
			op, err := transfer.ParseOperation(operation)
			if err != nil {
				return fmt.Errorf("%w: expected read or write, got %q", err, operation)
			}
			transport := viper.GetString("transport")
			if err := validateTransport(transport); err != nil {
				return err
			}

			lgr, err := setupLoggingFromViper("client")
			if err != nil {
				return err
			}
			defer func() { _ = lgr.Sync() }()

			cnf := &client.Config{
				Addr:           client.WithDefaultPort(addr, viper.GetInt("port")),
				Transport:      transport,
				ChunkSize:      viper.GetInt("chunk_size"),
				ReceivedPrefix: viper.GetString("received_prefix"),
				Fs:             afero.NewOsFs(),
				Logger:         lgr,
			}

			switch viper.GetString("tui_style") {
			case config.StyleRich:
				_, err := transfer_tui.Run(cmd.Context(), op, filename, cnf,
					transfer_tui.WithPromptOverwrite(viper.GetBool("prompt_overwrite_files")))
				if err != nil {
					// The tui has already rendered the failure.
					cmd.SilenceErrors = true
					cmd.SilenceUsage = true
					return err
				}
				fmt.Println("")
				return nil
			case config.StyleRaw:
				if err := handleClientCommandRaw(cmd.Context(), op, filename, cnf); err != nil {
					cmd.SilenceUsage = true
					return err
				}
				return nil
			default:
				return errors.New("invalid tui style provided")
			}
		},
	}
	clientCmd.Flags().StringP("transport", "t", "", transportFlagDesc)
	clientCmd.Flags().StringP("tui-style", "s", "", tuiStyleFlagDesc)
	clientCmd.Flags().BoolP("yes", "y", false, "Overwrite existing files without [Y/n] prompts")
	return clientCmd
}

// ------------------------------------------------------ Handlers -----------------------------------------------------

func handleClientCommandRaw(ctx context.Context, op transfer.Operation, filename string, cnf *client.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if op == transfer.Read && viper.GetBool("prompt_overwrite_files") {
		prefix := cnf.ReceivedPrefix
		if prefix == "" {
			prefix = file.DEFAULT_RECEIVED_PREFIX
		}
		local := filepath.Join(cnf.Dir, file.ReceivedName(prefix, filename))
		if exists, _ := afero.Exists(cnf.Fs, local); exists {
			fmt.Printf("overwrite %s? [y/n] ", local)
			response, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("unable to read input from stdin: %w", err)
			}
			switch strings.TrimSpace(response) {
			case "y", "yes", "Y", "Yes":
			case "n", "no", "N", "No":
				return fmt.Errorf("%w: %s", file.ErrFileExists, local)
			default:
				return errors.New("invalid response to prompt")
			}
		}
	}

	var transferred int64
	res, err := client.Run(ctx, op.String(), filename, cnf, stream.Counter(func(n int) { transferred += int64(n) }))
	if err != nil {
		var statusErr *transfer.StatusError
		if errors.As(err, &statusErr) {
			return fmt.Errorf("server replied: %s", statusErr.Message)
		}
		return fmt.Errorf("%s %s: %w", op, filename, err)
	}

	switch op {
	case transfer.Read:
		fmt.Printf("File received successfully: %s (%s)\n", res.LocalPath, tui.ByteCountSI(transferred))
	default:
		fmt.Printf("File sent successfully: %s (%s)\n", res.Filename, tui.ByteCountSI(transferred))
	}
	return nil
}

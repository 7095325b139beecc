package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/deploy"
)

func newDeployCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the chain on the parent chain",
		Long: `Deploy the configured chain through the parent chain's RollupCreator.

When the chain pays gas in a custom token, the RollupCreator is first
approved to spend the retryables fees. On success the core contract
addresses are stored in the session and the node configuration is written.

The signer configured under 'signer' pays for the deployment.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			progress := newProgress(cmd.ErrOrStderr())
			defer progress.stop()

			w, err := a.wizard(progress.report)
			if err != nil {
				return err
			}
			client, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			contracts, err := w.Deploy(ctx, client, client.Account().Hex())
			if contracts != nil {
				progress.stop()
				if perr := printJSON(cmd.OutOrStdout(), contracts); perr != nil {
					return perr
				}
			}
			if err != nil && contracts != nil {
				return fmt.Errorf("%w; the chain is deployed, run `orbit-setup artifacts regenerate` to retry", err)
			}
			return err
		}),
	}
}

func newArtifactsCommand(a *app) *cobra.Command {
	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Manage the generated node configuration",
	}

	regenerateCmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Write the node and L3 config of the deployed chain again",
		Long: `Derive the node config and L3 config of the deployed chain from the session
and write them to storage. No transaction is sent.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			w, err := a.wizard(nil)
			if err != nil {
				return err
			}
			client, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := w.RegenerateArtifacts(ctx, client, client.Account().Hex()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Artifacts written")
			return nil
		}),
	}

	artifactsCmd.AddCommand(regenerateCmd)
	return artifactsCmd
}

// progress renders deployment phases as a spinner on terminals and as
// plain lines elsewhere.
type progress struct {
	out  io.Writer
	spin *spinner.Spinner
}

func newProgress(out io.Writer) *progress {
	p := &progress{out: out}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		p.spin = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(out))
		p.spin.Start()
	}
	return p
}

func (p *progress) report(phase deploy.Phase, fraction float64, message string) {
	if p.spin != nil {
		p.spin.Suffix = fmt.Sprintf(" [%3.0f%%] %s", fraction*100, message)
		if phase.Terminal() {
			p.stop()
		}
		return
	}
	fmt.Fprintf(p.out, "[%3.0f%%] %s\n", fraction*100, message)
}

func (p *progress) stop() {
	if p.spin != nil && p.spin.Active() {
		p.spin.Stop()
	}
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drydock-sh/drydock/internal/config"
	"github.com/drydock-sh/drydock/internal/control"
	"github.com/drydock-sh/drydock/internal/jsonval"
	"github.com/drydock-sh/drydock/internal/logger"
	"github.com/drydock-sh/drydock/internal/notification"
	"github.com/drydock-sh/drydock/internal/plan"
	"github.com/drydock-sh/drydock/internal/protocol"
	"github.com/drydock-sh/drydock/internal/stream"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Pump a stream-json session through the protocol layer",
	Long: `Reads a stream-json event stream from a file, or stdin when no file is
given, and prints decoded events as they arrive.

Tool-approval requests are answered from config: tools on the
auto_allow_tools list are allowed, everything else is denied. Interactive
tools are never auto-approved. Control responses are written to stdout as
control_response lines.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("error opening stream: %w", err)
		}
		defer f.Close()
		in = f
	}
	defer logger.Close()

	var opts []control.Option
	if cfg.StrictControlEnabled() {
		opts = append(opts, control.WithStrict())
	}
	mgr := control.NewManager(os.Stdout, opts...)

	out := cmd.OutOrStdout()
	pump := stream.NewPump(in, mgr, stream.Handlers{
		OnEvent: func(ev protocol.Event) {
			printEvent(out, ev)
		},
		OnControlRequest: func(pending *control.Pending) {
			decideControlRequest(cfg, pending)
		},
		OnPlan: func(p *plan.Plan) {
			printPlan(out, p)
		},
		OnResult: func(res *protocol.ResultEvent) {
			if cfg.NotificationsEnabled() {
				notification.SessionCompleted(res.SessionID)
			}
		},
		OnEnd: func(err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "stream ended with error: %v\n", err)
			}
		},
	})

	return pump.Run(cmd.Context())
}

// decideControlRequest applies the auto-approval policy to one pending
// request. Interactive tools are denied with a notification: they exist to
// ask the user something no policy can answer.
func decideControlRequest(cfg *config.Config, pending *control.Pending) {
	switch req := pending.Request().(type) {
	case *protocol.CanUseToolRequest:
		if control.IsInteractiveTool(req.ToolName) {
			if cfg.NotificationsEnabled() {
				notification.ApprovalNeeded(req.ToolName)
			}
			pending.Deny("interactive tool requires a user decision")
			return
		}
		if cfg.IsAutoAllowed(req.ToolName) {
			pending.Allow(jsonval.Null())
			return
		}
		pending.Deny("tool not on auto-allow list")
	case *protocol.HookCallbackRequest:
		pending.Allow(jsonval.Null())
	default:
		pending.Deny("unsupported request")
	}
}

func printEvent(w io.Writer, ev protocol.Event) {
	switch e := ev.(type) {
	case *protocol.SystemEvent:
		fmt.Fprintf(w, "[system:%s] session=%s model=%s\n", e.Subtype, e.SessionID, e.Model)
	case *protocol.AssistantEvent:
		for _, block := range e.Content {
			switch block.Kind {
			case protocol.BlockText:
				fmt.Fprintf(w, "[assistant] %s\n", block.Text)
			case protocol.BlockToolUse:
				fmt.Fprintf(w, "[tool_use] %s (%s)\n", block.ToolUse.Name, block.ToolUse.ID)
			}
		}
	case *protocol.ToolResultEvent:
		for _, res := range e.Results {
			status := "ok"
			if res.IsError {
				status = "error"
			}
			fmt.Fprintf(w, "[tool_result:%s] %s\n", status, firstLine(res.Content))
		}
	case *protocol.ControlRequestEvent:
		fmt.Fprintf(w, "[control_request] id=%s\n", e.RequestID)
	case *protocol.ResultEvent:
		fmt.Fprintf(w, "[result:%s] turns=%d duration=%dms cost=$%.4f\n", e.Subtype, e.NumTurns, e.DurationMs, e.TotalCostUSD)
		if e.IsError {
			fmt.Fprintf(w, "[result] error: %s\n", e.ErrorText())
		}
	case *protocol.UnknownEvent:
		if e.Type != "" {
			fmt.Fprintf(w, "[unknown:%s]\n", e.Type)
		}
	}
}

func printPlan(w io.Writer, p *plan.Plan) {
	fmt.Fprintf(w, "\norchestration plan for %s (%d sessions):\n", p.ModulePath, len(p.Sessions))
	for _, s := range p.Sessions {
		fmt.Fprintf(w, "  - [%s] %s on %s\n", s.SessionType, s.Description, s.BranchName)
	}
	fmt.Fprintln(w)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

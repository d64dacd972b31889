// Command hakim runs a triage consultation: interactively in a terminal, or
// from a YAML case file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"golang.org/x/term"

	"hakim/pkg/agent"
	"hakim/pkg/agent/middleware/metrics"
	"hakim/pkg/config"
	"hakim/pkg/gateway"
	"hakim/pkg/intake"
	"hakim/pkg/logx"
	"hakim/pkg/media"
	"hakim/pkg/report"
	"hakim/pkg/version"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const defaultLogDir = ".hakim/logs"

type options struct {
	configPath  string
	casePath    string
	pdfPath     string
	format      string
	metricsPath string
	logDir      string
	showVersion bool
}

// buildGateway wires the model client, its middleware and the gateway.
//
//nolint:gochecknoglobals // replaced in tests
var buildGateway = func(cfg *config.Config, recorder metrics.Recorder) (intake.Gateway, error) {
	client, err := agent.NewLLMClientFactory(*cfg, recorder).CreateClient()
	if err != nil {
		return nil, err
	}
	return gateway.New(client, gateway.Options{
		QuestionCount:  cfg.Gateway.QuestionCount,
		ThinkingBudget: cfg.Gateway.ThinkingBudget,
	}), nil
}

// isInteractive reports whether stdin is a terminal.
//
//nolint:gochecknoglobals // replaced in tests
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("hakim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.casePath, "case", "", "Run non-interactively from a YAML case file")
	fs.StringVar(&opts.pdfPath, "pdf", "", "Save the report as a PDF to this path")
	fs.StringVar(&opts.format, "format", "text", "Report output format: text or json")
	fs.StringVar(&opts.metricsPath, "metrics", "", "Write a Prometheus text snapshot to this path on exit")
	fs.StringVar(&opts.logDir, "log-dir", "", "Directory for log files (interactive default: "+defaultLogDir+")")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, fmt.Errorf("unknown -format %q (want text or json)", opts.format)
	}
	return opts, nil
}

// run contains the main application logic and returns an exit code.
// This allows defers to execute before os.Exit is called.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "hakim: %v\n", err)
		return exitUsage
	}

	if opts.showVersion {
		fmt.Fprint(stdout, version.String())
		return exitOK
	}

	interactive := opts.casePath == ""
	if interactive && !isInteractive() {
		fmt.Fprintln(stderr, "hakim: interactive mode needs a terminal; pass -case <file> to run non-interactively")
		return exitUsage
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "hakim: %v\n", err)
		return exitError
	}
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "hakim: %v\n", err)
		return exitError
	}

	closeLog, err := setupLogging(cfg, opts, interactive)
	if err != nil {
		fmt.Fprintf(stderr, "hakim: %v\n", err)
		return exitError
	}
	if closeLog != nil {
		defer closeLog()
	}

	registry := prometheus.NewRegistry()
	if opts.metricsPath != "" {
		defer func() {
			if err := writeMetrics(opts.metricsPath, registry); err != nil {
				fmt.Fprintf(stderr, "hakim: %v\n", err)
			}
		}()
	}

	gw, err := buildGateway(cfg, metrics.NewPrometheusRecorder(registry))
	if err != nil {
		fmt.Fprintf(stderr, "hakim: %v\n", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := intake.NewController(gw, intake.WithContext(ctx))
	loader := media.NewLoader(cfg.Media.MaxBytes)
	output := reportOutput{format: opts.format, pdfPath: opts.pdfPath}

	if interactive {
		err = runWizard(ctx, ctrl, loader, stdout, output)
	} else {
		err = runCaseFile(opts.casePath, ctrl, loader, stdout, output)
	}
	if err != nil {
		fmt.Fprintf(stderr, "hakim: %v\n", err)
		return exitError
	}
	return exitOK
}

func runCaseFile(path string, ctrl *intake.Controller, loader *media.Loader, stdout io.Writer, output reportOutput) error {
	cf, err := LoadCaseFile(path)
	if err != nil {
		return err
	}
	session, err := runCase(ctrl, cf, loader)
	if err != nil {
		return err
	}
	return output.deliver(stdout, session)
}

// reportOutput says how a finished report is delivered.
type reportOutput struct {
	format  string
	pdfPath string
}

// deliver prints the session's report and, when a PDF path is set, saves it.
func (o reportOutput) deliver(w io.Writer, s intake.Session) error {
	if s.Report == nil {
		return fmt.Errorf("no report available at %s", s.Stage)
	}
	meta := reportMeta(s)
	if err := printReport(w, o.format, s, meta); err != nil {
		return err
	}
	if o.pdfPath == "" {
		return nil
	}
	return savePDF(o.pdfPath, s, meta)
}

func reportMeta(s intake.Session) report.Meta {
	return report.Meta{
		SessionID:      s.ID,
		ChiefComplaint: s.ChiefComplaint,
		Samples:        len(s.MediaSamples),
		Bypassed:       s.Bypassed,
		GeneratedAt:    time.Now(),
	}
}

func savePDF(path string, s intake.Session, meta report.Meta) error {
	if s.Report == nil {
		return fmt.Errorf("no report available at %s", s.Stage)
	}
	if err := report.SavePDF(path, s.Report, meta); err != nil {
		return err
	}
	logx.Infof("📄 Report saved to %s", path)
	return nil
}

// setupLogging applies the debug switches and opens the log file. The wizard
// always logs to a file so log lines never interleave with the forms.
func setupLogging(cfg *config.Config, opts *options, interactive bool) (func(), error) {
	if cfg.Logging.Debug {
		logx.SetDebug(true)
	}
	if len(cfg.Logging.DebugDomains) > 0 {
		logx.SetDebugDomains(cfg.Logging.DebugDomains)
	}

	dir := opts.logDir
	if dir == "" {
		dir = cfg.Logging.Dir
	}
	if dir == "" && interactive {
		dir = defaultLogDir
	}
	if dir == "" {
		return nil, nil
	}

	path, err := logx.InitializeLogFile(filepath.Clean(dir), false)
	if err != nil {
		return nil, err
	}
	logx.Infof("Logging to %s", path)
	return func() { _ = logx.CloseLogFile() }, nil
}

func printReport(w io.Writer, format string, s intake.Session, meta report.Meta) error {
	switch format {
	case "json":
		out, err := report.JSON(s.Report, meta)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		if width, ok := terminalWidth(w); ok {
			_, err := fmt.Fprintln(w, report.Terminal(s.Report, meta, width))
			return err
		}
		_, err := io.WriteString(w, report.Text(s.Report, meta))
		return err
	}
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, true
	}
	return min(width, 100), true
}

func writeMetrics(path string, gatherer prometheus.Gatherer) (err error) {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close metrics file: %w", cerr)
		}
	}()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

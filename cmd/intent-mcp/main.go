// Intent MCP server classifies real estate emails through Model Context Protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/intent-mcp/internal/auth"
	"github.com/hal9000y/intent-mcp/internal/classify"
	"github.com/hal9000y/intent-mcp/internal/config"
	"github.com/hal9000y/intent-mcp/internal/format"
	"github.com/hal9000y/intent-mcp/internal/gservice"
	"github.com/hal9000y/intent-mcp/internal/llm"
	"github.com/hal9000y/intent-mcp/internal/preprocess"
	"github.com/hal9000y/intent-mcp/internal/tool"
)

func main() {
	httpAddr := flag.String("http-addr", "localhost:0", "HTTP SERVER listen addr")
	oauthTokenFile := flag.String("oauth-token-file", "./data/intent-mcp-token.json", "Path to cache google oauth token, empty to avoid storing")
	oauthURLParam := flag.String("oauth-url", "", "OAuth URL")
	envFileParam := flag.String("env-file", "", "Path to env file")
	enableStdio := flag.Bool("stdio", false, "Enable stdio transport for MCP (disables stdout logging)")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	logger, closeLogs := setupLogger(*enableStdio, *logFile)
	defer closeLogs()

	conf, err := config.Load(*envFileParam)
	if err != nil {
		logger.Fatal("config.Load failed", "err", err)
	}
	logger.SetLevel(conf.LogLevel)

	pre := mustCreatePreprocessor(logger, conf.RulesFile)

	llmSvc := llm.NewService(logger, llm.Config{
		APIKey:      conf.LLMAPIKey,
		BaseURL:     conf.LLMBaseURL,
		Model:       conf.LLMModel,
		Temperature: conf.LLMTemperature,
		MaxTokens:   conf.LLMMaxTokens,
	})
	cls := classify.NewClassifier(logger, llmSvc, pre, classify.WithMaxRetries(conf.LLMMaxRetries))

	ln, err := net.Listen("tcp", *httpAddr)
	if err != nil {
		logger.Fatal("net.Listen failed", "err", err)
	}

	mux := http.NewServeMux()

	var toolOpts []tool.Option
	if conf.GmailEnabled() {
		oauthConf := createOauthCfg(conf, ln.Addr().String(), *oauthURLParam)

		tok, err := auth.NewToken(logger, oauthConf, *oauthTokenFile)
		if err != nil {
			logger.Fatal("auth.NewToken failed", "err", err)
		}

		defer func() {
			logger.Info("Persisting token if exists")
			if err := tok.Persist(); err != nil {
				logger.Error("tok.Persist failed", "err", err)
			}
		}()

		mux.Handle("/oauth", auth.NewHTTPHandler(logger, tok))
		toolOpts = append(toolOpts, tool.WithGmail(gservice.NewGmail(oauthConf, tok), format.Converter{}))

		if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrTokenNotSet) {
			openBrowser(logger, oauthConf.RedirectURL)
		}
	}

	intentT := tool.NewServer(logger, pre, cls, toolOpts...)
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return intentT }, nil))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	stopHTTP, errHTTPCh := serveHTTP(logger, srv, ln)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(logger, intentT)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		logger.Error("Error http server", "err", err)
	case err := <-errStdioCh:
		logger.Error("Error stdio", "err", err)
	case <-shutdown:
		logger.Info("Shutdown signal received")
	}
}

func mustCreatePreprocessor(logger *log.Logger, rulesFile string) *preprocess.Preprocessor {
	if rulesFile == "" {
		return preprocess.Default()
	}

	rules, err := preprocess.LoadRules(rulesFile)
	if err != nil {
		logger.Fatal("preprocess.LoadRules failed", "file", rulesFile, "err", err)
	}

	pre, err := preprocess.New(rules)
	if err != nil {
		logger.Fatal("preprocess.New failed", "file", rulesFile, "err", err)
	}

	logger.Info("Loaded preprocessing rules", "file", rulesFile)
	return pre
}

func serveStdio(logger *log.Logger, srv *mcp.Server) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		logger.Info("Starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			errStdioCh <- fmt.Errorf("srv.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		logger.Info("Stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(logger *log.Logger, srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		logger.Info("Starting http server", "addr", ln.Addr().String())

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errHTTPCh <- fmt.Errorf("srv.Serve failed: %w", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("srv.Shutdown failed", "err", err)
		}

		<-errHTTPCh
		logger.Info("HTTP server stopped")
	}, errHTTPCh
}

func createOauthCfg(conf *config.Config, lnAddr, oauthURLParam string) *oauth2.Config {
	oauthURL := fmt.Sprintf("http://%s/oauth", lnAddr)
	if oauthURLParam != "" {
		oauthURL = oauthURLParam
	}

	return &oauth2.Config{
		ClientID:     conf.OAuthClientID,
		ClientSecret: conf.OAuthClientSecret,
		RedirectURL:  oauthURL,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

// setupLogger writes to logFile when set. With stdio transport stdout
// carries the protocol, so logs are discarded unless a file is given.
func setupLogger(enableStdio bool, logFile string) (*log.Logger, func()) {
	opts := log.Options{ReportTimestamp: true, Prefix: "intent-mcp"}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		logger := log.NewWithOptions(f, opts)

		return logger, func() {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("f.Close failed: %w", err))
			}
		}
	}

	var w io.Writer = os.Stdout
	if enableStdio {
		w = io.Discard
	}

	return log.NewWithOptions(w, opts), func() {}
}

func openBrowser(logger *log.Logger, url string) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		logger.Warn("Could not open browser automatically, please open the link manually", "err", err, "url", url)
	}
}

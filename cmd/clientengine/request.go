package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/clientengine/component"
	"github.com/kbukum/clientengine/engine"
	"github.com/kbukum/clientengine/logger"
	"github.com/kbukum/clientengine/transport"
)

type requestOptions struct {
	method  string
	headers []string
	data    string
	include bool
	fail    bool
}

func newRequestCmd(root *rootOptions) *cobra.Command {
	opts := &requestOptions{}

	cmd := &cobra.Command{
		Use:     "request [flags] <url>",
		Aliases: []string{"get"},
		Short:   "Issue one HTTP request through a freshly built engine",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), cmd.OutOrStdout(), root, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.method, "method", "X", "", "request method (default GET, or POST with --data)")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	flags.StringVarP(&opts.data, "data", "d", "", "request body")
	flags.BoolVarP(&opts.include, "include", "i", false, "print the status line and response headers")
	flags.BoolVarP(&opts.fail, "fail", "f", false, "exit with an error on 4xx and 5xx responses")
	return cmd
}

func runRequest(ctx context.Context, out io.Writer, root *rootOptions, opts *requestOptions, url string) error {
	req, err := opts.newRequest(ctx, url)
	if err != nil {
		return err
	}

	cfg, err := root.settings.ToClientConfiguration()
	if err != nil {
		return err
	}
	started := false
	defer func() {
		if !started {
			releaseExecutor(ctx, cfg.Executor)
		}
	}()

	tel, err := root.initTelemetry(ctx)
	if err != nil {
		return err
	}
	defer tel.close()

	factory, err := engine.NewFactory(tel.factoryOptions()...)
	if err != nil {
		return err
	}

	comp := engine.NewComponent("engine", factory, cfg)
	registry := component.NewRegistry()
	if err := registry.Register(comp); err != nil {
		return err
	}
	if err := registry.StartAll(ctx); err != nil {
		return err
	}
	started = true
	defer func() {
		if err := registry.StopAll(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("engine shutdown failed", logger.ErrorFields("stop", err))
		}
	}()

	e := comp.Engine()
	logger.Debug("engine ready", logger.Fields(
		logger.FieldEngineID, e.ID(),
		"details", comp.Describe().Details,
	))

	resp, err := e.Do(ctx, req)
	if err != nil {
		return err
	}

	if opts.include {
		writeHead(out, resp)
	}
	if _, err := out.Write(resp.Body); err != nil {
		return err
	}
	if opts.fail && resp.IsError() {
		return fmt.Errorf("%s %s: %d %s", req.Method, url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

func (o *requestOptions) newRequest(ctx context.Context, url string) (*http.Request, error) {
	method := strings.ToUpper(o.method)
	var body io.Reader
	if o.data != "" {
		body = strings.NewReader(o.data)
		if method == "" {
			method = http.MethodPost
		}
	}
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return req, nil
}

func writeHead(out io.Writer, resp *engine.Response) {
	fmt.Fprintf(out, "%s %d %s\n", resp.Proto, resp.StatusCode, http.StatusText(resp.StatusCode))
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			fmt.Fprintf(out, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(out)
}

// releaseExecutor shuts down an executor that no engine took ownership of.
func releaseExecutor(ctx context.Context, exec transport.Executor) {
	switch x := exec.(type) {
	case interface{ Shutdown(context.Context) error }:
		_ = x.Shutdown(context.WithoutCancel(ctx))
	case io.Closer:
		_ = x.Close()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0xg/mangaprogress/internal/api"
)

func runPositions(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, bm, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := bm.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No saved positions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SITE\tWORK\tCHAPTER\tPROGRESS\tANCHOR\tUPDATED")
	for _, r := range records {
		anchor := "-"
		if r.Saved.HasAnchor() {
			anchor = fmt.Sprintf("%v@%.2f", r.Saved.StructuralPath, *r.Saved.RelativeOffset)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v/%v\t%s\t%s\n",
			r.Key.Page, r.Key.Identifier,
			strconv.FormatFloat(r.Key.Chapter, 'f', -1, 64),
			r.Saved.Current, r.Saved.Total, anchor,
			r.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, bm, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.NewRouter(bm, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serve: listening", "addr", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("serve: shutting down")
	return srv.Shutdown(shutdownCtx)
}

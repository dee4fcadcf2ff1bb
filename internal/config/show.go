package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as an annotated TOML
// document to w. This powers "config show": the effective values after all
// override layers have been applied.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.Path)

	ew.printf("# server\n")
	ew.printf("api_url          = %q\n", r.APIURL)
	ew.printf("request_timeout  = %q\n", r.RequestTimeout)

	if r.UserAgent != "" {
		ew.printf("user_agent       = %q\n", r.UserAgent)
	}

	ew.printf("\n# credentials\n")
	ew.printf("credential_store = %q\n", r.CredentialStore)

	if path := r.CredentialFile(); path != "" {
		ew.printf("credential_path  = %q\n", path)
	}

	ew.printf("\n# logging\n")
	ew.printf("log_level        = %q\n", r.LogLevel)
	ew.printf("log_format       = %q\n", r.LogFormat)

	ew.printf("\n# display\n")
	ew.printf("language         = %q\n", r.Language)
	ew.printf("currency         = %q\n", r.Currency)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Later writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

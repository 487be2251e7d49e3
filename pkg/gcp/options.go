package gcp

import (
	"strings"

	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"google.golang.org/api/option"
)

// ClientOptions picks inline credentials over a credentials file. Neither set means ADC.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}

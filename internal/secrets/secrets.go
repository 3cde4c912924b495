// Package secrets resolves the mail provider API key from the environment or
// an SSM SecureString parameter.
package secrets

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/ntek-web/internal/log"
	"github.com/keithlinneman/ntek-web/internal/xerrors"
)

// Source names where a key came from, for logging.
type Source string

const (
	SourceNone   Source = "none"
	SourceConfig Source = "config"
	SourceSSM    Source = "ssm"
)

// ParameterGetter is the slice of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Options struct {
	// APIKey wins when set
	APIKey string
	// SSMParam names a SecureString parameter read when APIKey is empty
	SSMParam string
	// Client is used for SSM reads. A client is built from the default AWS
	// config when nil and SSMParam is set.
	Client ParameterGetter
	Logger log.Logger
}

// LoadResendKey returns the API key and where it came from.
// An empty key with SourceNone means mail delivery should be disabled.
func LoadResendKey(ctx context.Context, opts Options) (string, Source, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if k := strings.TrimSpace(opts.APIKey); k != "" {
		return k, SourceConfig, nil
	}
	if opts.SSMParam == "" {
		return "", SourceNone, nil
	}

	client := opts.Client
	if client == nil {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return "", SourceNone, xerrors.Wrap(err, "load AWS config")
		}
		client = ssm.NewFromConfig(awsCfg)
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", SourceNone, xerrors.Wrapf(err, "get SSM parameter %s", opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", SourceNone, xerrors.Newf("SSM parameter %s has no value", opts.SSMParam)
	}
	key := strings.TrimSpace(*out.Parameter.Value)
	if key == "" {
		return "", SourceNone, xerrors.Newf("SSM parameter %s is empty", opts.SSMParam)
	}

	opts.Logger.Info(ctx, "loaded mail api key from ssm", "ssm_param", opts.SSMParam)
	return key, SourceSSM, nil
}

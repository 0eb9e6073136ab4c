package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrMissingCredentials is returned when no API key pair could be resolved.
var ErrMissingCredentials = errors.New("cannot find the api/secret key pair for the binance account")

// ParameterGetter is the subset of the SSM client used to read secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewParameterStore builds an SSM client from the default AWS credential chain.
func NewParameterStore(ctx context.Context) (ParameterGetter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// ResolveCredentials fills in APIKey and SecretKey. With the "ssm" source the
// keys are read (decrypted) from Parameter Store through store, which may be
// nil to use the default AWS client.
func ResolveCredentials(ctx context.Context, cfg *BinanceConfig, store ParameterGetter) error {
	if cfg.CredentialsSource == "ssm" {
		timeout := cfg.SSM.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if store == nil {
			var err error
			if store, err = NewParameterStore(ctx); err != nil {
				return err
			}
		}
		key, err := getParameterStoreValue(ctx, store, cfg.SSM.APIKeyParameter)
		if err != nil {
			return err
		}
		secret, err := getParameterStoreValue(ctx, store, cfg.SSM.SecretKeyParameter)
		if err != nil {
			return err
		}
		cfg.APIKey, cfg.SecretKey = key, secret
	}

	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

func getParameterStoreValue(ctx context.Context, store ParameterGetter, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: ssm parameter name is empty", ErrMissingCredentials)
	}
	decrypt := true
	result, err := store.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("get ssm parameter %s: %w", name, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("%w: ssm parameter %s has no value", ErrMissingCredentials, name)
	}
	return *result.Parameter.Value, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/maneframe/aws-keychain-util/internal/credentialexchange"
	"github.com/maneframe/aws-keychain-util/internal/keystore"
	"github.com/spf13/viper"
)

var ErrUnableToCreateClient = errors.New("sts - cannot create a client")

// newStore builds the keyring backed entry store. The base dir for the
// label index and the lock dir can be overridden via config/env
// (AWS_KEYCHAIN_STORE_DIR), as can the keyring service name.
func newStore() (*keystore.Store, error) {
	store, err := keystore.New(viper.GetString("store-dir"))
	if err != nil {
		return nil, err
	}
	if service := viper.GetString("service"); service != "" {
		store = store.WithService(service)
	}
	return store, nil
}

// stsClientFactory authenticates an STS client as the resolved base
// credential, the region coming from config/env when set.
func stsClientFactory() credentialexchange.ClientFactory {
	return func(ctx context.Context, base *credentialexchange.BaseCredential) (credentialexchange.StsApi, error) {
		opts := []func(*config.LoadOptions) error{
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(base.AccessKeyID, base.SecretAccessKey, ""),
			),
		}
		if region := viper.GetString("region"); region != "" {
			opts = append(opts, config.WithRegion(region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %s, %w", err, ErrUnableToCreateClient)
		}
		return sts.NewFromConfig(cfg), nil
	}
}

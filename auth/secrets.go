package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the slice of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type secretCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ResolveSecret fetches a {username, password} JSON secret and returns it as
// BasicAuth. The username defaults to "admin" when the secret omits it.
func ResolveSecret(ctx context.Context, api SecretsAPI, secretARN string) (BasicAuth, error) {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretARN),
	})
	if err != nil {
		return BasicAuth{}, fmt.Errorf("retrieve secret %s: %w", secretARN, err)
	}
	if out.SecretString == nil {
		return BasicAuth{}, fmt.Errorf("secret %s: value is not a string", secretARN)
	}

	var creds secretCredentials
	if err = json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return BasicAuth{}, fmt.Errorf("parse secret %s: %w", secretARN, err)
	}
	if creds.Username == "" {
		creds.Username = "admin"
	}
	if creds.Password == "" {
		return BasicAuth{}, fmt.Errorf("secret %s: missing password", secretARN)
	}
	return BasicAuth{Username: creds.Username, Password: creds.Password}, nil
}

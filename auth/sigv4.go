package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// sha256 of the empty string, used when a request carries no body.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

const openSearchService = "es"

// SigV4 signs requests with AWS Signature Version 4 for IAM-authenticated
// OpenSearch domains.
type SigV4 struct {
	credentials aws.CredentialsProvider
	region      string
	service     string
	signer      *v4.Signer
}

func NewSigV4(credentials aws.CredentialsProvider, region string) *SigV4 {
	return &SigV4{
		credentials: credentials,
		region:      region,
		service:     openSearchService,
		signer:      v4.NewSigner(),
	}
}

func (a *SigV4) Apply(ctx context.Context, req *http.Request) error {
	creds, err := a.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve aws credentials: %w", err)
	}

	payloadHash := emptyPayloadHash
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return fmt.Errorf("read request body for signing: %w", err)
		}
		defer body.Close()
		raw, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("read request body for signing: %w", err)
		}
		sum := sha256.Sum256(raw)
		payloadHash = hex.EncodeToString(sum[:])
	}

	if err = a.signer.SignHTTP(ctx, creds, req, payloadHash, a.service, a.region, time.Now().UTC()); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	return nil
}

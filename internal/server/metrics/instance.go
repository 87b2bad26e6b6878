package metrics

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/dmitrijs2005/webapp/internal/common"
)

const instanceIDPath = "instance-id"

type metadataGetter interface {
	GetMetadata(ctx context.Context, in *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// newIMDSClient is a seam for tests.
var newIMDSClient = func() metadataGetter {
	return imds.New(imds.Options{})
}

// InstanceID asks the EC2 instance metadata service for the instance id and
// falls back to common.DefaultInstanceID when it is unavailable.
func InstanceID(ctx context.Context, timeout time.Duration) string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := newIMDSClient().GetMetadata(ctx, &imds.GetMetadataInput{Path: instanceIDPath})
	if err != nil {
		return common.DefaultInstanceID
	}
	defer out.Content.Close()

	b, err := io.ReadAll(io.LimitReader(out.Content, 256))
	id := strings.TrimSpace(string(b))
	if err != nil || id == "" {
		return common.DefaultInstanceID
	}
	return id
}

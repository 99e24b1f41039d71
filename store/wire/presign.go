package wire

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
)

const unsignedPayload = "UNSIGNED-PAYLOAD"

// PresignPart returns a SigV4 query-signed PUT URL for one part.
// No request is sent; the URL is valid for in.TTL from now.
func (c *Client) PresignPart(ctx context.Context, in store.PresignPartInput) (string, error) {
	if err := store.CheckPresignTTL(in.TTL); err != nil {
		return "", err
	}

	query := url.Values{
		"partNumber":    {strconv.Itoa(in.PartNumber)},
		"uploadId":      {in.UploadID},
		"X-Amz-Expires": {strconv.FormatInt(int64(in.TTL/time.Second), 10)},
	}
	u := c.objectURL(in.Bucket, in.Key, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), http.NoBody)
	if err != nil {
		return "", errors.NewError("presignPart", err).WithBucket(in.Bucket).WithKey(in.Key)
	}
	req.URL = u

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return "", errors.NewError("presignPart", errors.ErrInvalidConfig).
			WithBucket(in.Bucket).WithKey(in.Key).
			WithMessage(fmt.Sprintf("retrieve credentials: %v", err))
	}

	signed, _, err := c.signer.PresignHTTP(ctx, creds, req, unsignedPayload, signingService, c.region, c.now().UTC())
	if err != nil {
		return "", errors.NewProtocolError("presignPart", in.Bucket, in.Key, fmt.Errorf("presign: %w", err)).
			WithUploadID(in.UploadID)
	}
	return signed, nil
}

package wire

import (
	"bytes"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// Namespace is the XML namespace of S3 response documents.
const Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

type completeMultipartUpload struct {
	XMLName xml.Name        `xml:"http://s3.amazonaws.com/doc/2006-03-01/ CompleteMultipartUpload"`
	Parts   []completedPart `xml:"Part"`
}

type completedPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

type createBucketConfiguration struct {
	XMLName            xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ CreateBucketConfiguration"`
	LocationConstraint string   `xml:"LocationConstraint"`
}

// EncodeCompletion renders the CompleteMultipartUpload document for parts
// in ascending part number order. The output does not depend on the order
// of the input.
func EncodeCompletion(parts []uploadtypes.Part) ([]byte, error) {
	if len(parts) == 0 {
		return nil, errors.NewError("encodeCompletion", errors.ErrInvalidInput).
			WithMessage("at least one part is required")
	}

	var doc completeMultipartUpload
	for _, p := range store.SortParts(parts) {
		doc.Parts = append(doc.Parts, completedPart{PartNumber: p.PartNumber, ETag: p.ETag})
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal completion: %w", err)
	}
	return out, nil
}

func encodeBucketConfiguration(region string) []byte {
	out, _ := xml.Marshal(createBucketConfiguration{LocationConstraint: region})
	return out
}

// parseInitiate extracts the upload id from an InitiateMultipartUploadResult.
func parseInitiate(body []byte) (string, error) {
	if root, _ := rootElement(body); root == "Error" {
		return "", documentError(body)
	}
	id, found, err := FindElement(body, "UploadId")
	if err != nil {
		return "", fmt.Errorf("decode initiate response: %w", err)
	}
	if !found || strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("initiate response has no UploadId")
	}
	return strings.TrimSpace(id), nil
}

// parseComplete extracts the final ETag from a CompleteMultipartUploadResult.
// S3 can fail a completion after sending a 200 status, so an <Error> root is
// a rejection even on success statuses.
func parseComplete(body []byte) (string, error) {
	root, err := rootElement(body)
	if err != nil {
		return "", fmt.Errorf("decode complete response: %w", err)
	}
	if root == "Error" {
		return "", documentError(body)
	}
	etag, found, err := FindElement(body, "ETag")
	if err != nil {
		return "", fmt.Errorf("decode complete response: %w", err)
	}
	etag = strings.Trim(strings.TrimSpace(etag), `"`)
	if !found || etag == "" {
		return "", fmt.Errorf("complete response has no ETag")
	}
	return etag, nil
}

// FindElement returns the text of the first element named local. An element
// in the S3 namespace is preferred; otherwise the first element with that
// local name in any namespace, or none, is used.
func FindElement(body []byte, local string) (string, bool, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		fallback      string
		foundFallback bool
	)
	for {
		tok, err := dec.Token()
		if stderrors.Is(err, io.EOF) {
			return fallback, foundFallback, nil
		}
		if err != nil {
			return "", false, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != local {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return "", false, err
		}
		if start.Name.Space == Namespace {
			return text, true, nil
		}
		if !foundFallback {
			fallback, foundFallback = text, true
		}
	}
}

// rootElement returns the local name of the document element.
func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// storeError is the S3 <Error> document.
type storeError struct {
	Code    string
	Message string
}

func (e *storeError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func documentError(body []byte) *storeError {
	code, _, _ := FindElement(body, "Code")
	msg, _, _ := FindElement(body, "Message")
	return &storeError{Code: strings.TrimSpace(code), Message: strings.TrimSpace(msg)}
}

// responseError builds the ProtocolError for a non-2xx response.
// Bodiless responses such as HEAD are described by their status.
func responseError(op, bucket, key string, status int, body []byte) error {
	se := documentError(body)
	if se.Code == "" {
		se.Code = statusCode(status)
		se.Message = fmt.Sprintf("status %d %s", status, http.StatusText(status))
	}
	return protocolError(op, bucket, key, se)
}

// protocolError wraps err as a ProtocolError, carrying the store error code
// when err is a decoded <Error> document.
func protocolError(op, bucket, key string, err error) *errors.Error {
	e := errors.NewProtocolError(op, bucket, key, err)
	var se *storeError
	if stderrors.As(err, &se) {
		e.WithCode(se.Code)
	}
	return e
}

func statusCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusForbidden:
		return "AccessDenied"
	case http.StatusBadRequest:
		return "BadRequest"
	default:
		return fmt.Sprintf("HTTP%d", status)
	}
}

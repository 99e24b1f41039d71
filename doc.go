// Package uploads orchestrates large-file uploads into S3-compatible object
// stores using the multipart upload protocol.
//
// The Orchestrator decides how a file is split into parts, hands out
// time-boxed presigned URLs so a client can PUT each part directly to the
// store, and finalizes or cancels the session. File bytes never pass through
// the orchestrator, and it keeps no per-session state: every call carries the
// (upload id, bucket, object key) triple identifying its session.
//
// The object store is reached through a store.SessionStore. Three backends are
// provided:
//   - store/wire speaks the S3 wire protocol directly with SigV4 signing
//   - store/s3store uses the AWS SDK v2 S3 client
//   - store/miniostore uses minio-go
//
// Example usage:
//
//	backend, err := wire.New("http://localhost:9000",
//	    wire.WithStaticCredentials(accessKey, secretKey),
//	)
//	if err != nil {
//	    return err
//	}
//
//	orch, err := uploads.New(backend, uploads.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	session, err := orch.Initiate(ctx, uploadtypes.InitiateRequest{
//	    FileName: "movie.mp4",
//	    FileSize: 40 << 30,
//	})
//	if err != nil {
//	    return err
//	}
//
//	grants, err := orch.PresignBatch(ctx, uploadtypes.PresignRequest{
//	    UploadID:    session.UploadID,
//	    Bucket:      session.Bucket,
//	    ObjectKey:   session.ObjectKey,
//	    PartNumbers: []int{1, 2, 3},
//	})
package uploads

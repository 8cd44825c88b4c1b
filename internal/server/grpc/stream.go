package grpc

import (
	"errors"
	"fmt"
	"io"

	"github.com/SakshiM22/secure-vault/internal/api"
	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/SakshiM22/secure-vault/internal/server/catalog"
	"github.com/SakshiM22/secure-vault/internal/server/ingest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Upload reads a header frame followed by data frames and feeds the data
// into the ingest pipeline as it arrives.
func (s *GRPCServer) Upload(stream api.UploadServer) error {
	ctx := stream.Context()
	acc, err := caller(ctx)
	if err != nil {
		return err
	}

	first, err := stream.Recv()
	if errors.Is(err, io.EOF) {
		return status.Error(codes.InvalidArgument, "empty upload")
	}
	if err != nil {
		return err
	}
	if first.Header == nil {
		return status.Error(codes.InvalidArgument, "first frame must carry the upload header")
	}

	pr, pw := io.Pipe()
	go func() {
		if len(first.Chunk) > 0 {
			if _, err := pw.Write(first.Chunk); err != nil {
				return
			}
		}
		for {
			frame, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				_ = pw.Close()
				return
			}
			if err != nil {
				_ = pw.CloseWithError(err)
				return
			}
			if frame.Header != nil {
				_ = pw.CloseWithError(fmt.Errorf("%w: repeated upload header", common.ErrValidation))
				return
			}
			if _, err := pw.Write(frame.Chunk); err != nil {
				return
			}
		}
	}()
	// Closing pr fails the receiver's next write when the pipeline stopped
	// early. A receiver still blocked in Recv is released when the stream
	// context ends, which happens as soon as this handler returns.
	defer pr.Close()

	out, err := s.ingest.Ingest(ctx, ingest.Request{
		Owner:        acc,
		Name:         first.Header.Name,
		ContentType:  first.Header.ContentType,
		DeclaredSize: first.Header.Size,
		Body:         pr,
		Origin:       originFrom(ctx),
	})
	if err != nil {
		return s.toStatus(ctx, err)
	}

	resp := &api.UploadResponse{Outcome: api.OutcomeAccepted, File: toAPIFile(out.File)}
	if out.Kind == ingest.Blocked {
		resp = &api.UploadResponse{Outcome: api.OutcomeBlocked, EngineHits: out.EngineHits}
	}
	return stream.SendAndClose(resp)
}

func (s *GRPCServer) Download(req *api.FileRequest, stream api.DownloadServer) error {
	return s.sendFile(req, stream, catalog.ModeDownload)
}

func (s *GRPCServer) Preview(req *api.FileRequest, stream api.DownloadServer) error {
	return s.sendFile(req, stream, catalog.ModePreview)
}

func (s *GRPCServer) sendFile(req *api.FileRequest, stream api.DownloadServer, mode catalog.Mode) error {
	ctx := stream.Context()
	acc, err := caller(ctx)
	if err != nil {
		return err
	}

	art, err := s.catalog.RetrieveForRead(ctx, acc, req.ID, mode, originFrom(ctx))
	if err != nil {
		return s.toStatus(ctx, err)
	}
	defer art.Close()

	disposition := api.DispositionAttachment
	if mode == catalog.ModePreview {
		disposition = api.DispositionInline
	}
	header := &api.DownloadHeader{
		Name:        art.File.OriginalName,
		ContentType: art.File.ContentType,
		Size:        art.Size,
		Disposition: disposition,
	}
	if err := stream.Send(&api.DownloadFrame{Header: header}); err != nil {
		return err
	}

	for {
		buf := make([]byte, api.ChunkSize)
		n, rerr := io.ReadFull(art, buf)
		if n > 0 {
			if err := stream.Send(&api.DownloadFrame{Chunk: buf[:n]}); err != nil {
				return err
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			return nil
		}
		if rerr != nil {
			s.logger.Error(ctx, "read artifact", "file", art.File.ID, "error", rerr)
			return status.Error(codes.Internal, common.ErrInternal.Error())
		}
	}
}

// WatchEvents streams audit events to an administrator until the client
// goes away.
func (s *GRPCServer) WatchEvents(_ *api.Empty, stream api.EventsServer) error {
	ctx := stream.Context()
	acc, err := caller(ctx)
	if err != nil {
		return err
	}

	sub, err := s.admin.Watch(acc)
	if err != nil {
		return s.toStatus(ctx, err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return status.Error(codes.Unavailable, "event stream closed")
			}
			if err := stream.Send(toAPIEvent(ev)); err != nil {
				return err
			}
		}
	}
}

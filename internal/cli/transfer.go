package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eunmann/postcache/internal/logctx"
	"github.com/eunmann/postcache/pkg/fileutil"
	"github.com/eunmann/postcache/pkg/humanfmt"
	"github.com/eunmann/postcache/pkg/s3sync"
	"github.com/eunmann/postcache/pkg/snapshot"
)

func runExport(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	outPath := fs.String("out", "", "path of the Parquet snapshot to write")
	s3URI := fs.String("s3", "", "also upload the snapshot to this s3://bucket/key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *outPath == "" {
		return errors.New("--out is required")
	}
	var bucket, key string
	if *s3URI != "" {
		if bucket, key, err = s3sync.ParseS3URI(*s3URI); err != nil {
			return err
		}
	}

	s, err := openSession("export", opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	log := logctx.FromContext(s.ctx)
	if dir := filepath.Dir(*outPath); fileutil.Exists(dir) {
		if _, err := fileutil.CleanupTmpFiles(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to clean up tmp files")
		}
	}

	posts, err := s.cache.Posts(s.ctx)
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(*outPath, posts); err != nil {
		return err
	}
	info, err := os.Stat(*outPath)
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}
	fmt.Fprintf(out, "exported %d posts to %s (%s)\n", len(posts), *outPath, humanfmt.Bytes(info.Size()))

	if bucket == "" {
		return nil
	}
	client, err := s3sync.NewClient(s.ctx)
	if err != nil {
		return err
	}
	if err := client.Upload(s.ctx, bucket, key, *outPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "uploaded %s\n", *s3URI)
	return nil
}

func runRestore(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	in := fs.String("in", "", "Parquet snapshot to restore, a local path or s3://bucket/key")
	replace := fs.Bool("replace", false, "drop existing cache tables before restoring")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *in == "" {
		return errors.New("--in is required")
	}

	var bucket, key string
	if s3sync.IsS3URI(*in) {
		if bucket, key, err = s3sync.ParseS3URI(*in); err != nil {
			return err
		}
	} else if !fileutil.Exists(*in) {
		return fmt.Errorf("snapshot not found: %s", *in)
	}

	s, err := openSession("restore", opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	path := *in
	if bucket != "" {
		tmpDir, err := os.MkdirTemp("", "postcache-restore-")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		client, err := s3sync.NewClient(s.ctx)
		if err != nil {
			return err
		}
		path = filepath.Join(tmpDir, filepath.Base(key))
		n, err := client.Download(s.ctx, bucket, key, path)
		if err != nil {
			return err
		}
		log := logctx.FromContext(s.ctx)
		log.Info().
			Str("uri", *in).
			Str("size", humanfmt.Bytes(n)).
			Msg("downloaded snapshot")
	}

	posts, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}

	if *replace {
		if err := s.cache.DropSchema(s.ctx); err != nil {
			return err
		}
		if err := s.cache.CreateSchema(s.ctx); err != nil {
			return err
		}
	}
	for _, p := range posts {
		s.cache.Enqueue(p, p.Accounts()...)
	}
	if err := s.cache.Flush(s.ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "restored %d posts from %s\n", len(posts), *in)
	return nil
}

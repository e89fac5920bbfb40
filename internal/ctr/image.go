// Copyright 2025 Emiliano Spinella (eminwux)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ctr

import (
	"context"
	"fmt"
	"io"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/platforms"
	"github.com/eminwux/qelaunch/internal/engine"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func (c *Client) ListImages(ctx context.Context, ref string) ([]engine.ImageSummary, error) {
	cClient, nsCtx, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}

	imgs, err := cClient.ImageService().List(nsCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	want := engine.NormalizeRef(ref)
	var out []engine.ImageSummary
	for _, img := range imgs {
		if engine.NormalizeRef(img.Name) != want {
			continue
		}
		out = append(out, engine.ImageSummary{
			ID:       img.Target.Digest,
			RepoTags: []string{img.Name},
		})
	}
	return out, nil
}

// Pull fetches and unpacks ref for the default platform. Each fetched
// descriptor is reported as one progress line.
func (c *Client) Pull(ctx context.Context, ref string, progress io.Writer) error {
	if progress == nil {
		progress = io.Discard
	}
	cClient, nsCtx, err := c.conn(ctx)
	if err != nil {
		return err
	}

	// The lease keeps fetched content from being collected before unpack.
	leaseCtx, done, err := cClient.WithLease(nsCtx)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to create lease for image pull, continuing without lease",
			"image", ref, "err", formatError(err))
		leaseCtx = nsCtx
		done = func(context.Context) error { return nil }
	}
	defer func() {
		if doneErr := done(nsCtx); doneErr != nil {
			c.logger.WarnContext(ctx, "failed to release pull lease", "image", ref, "err", formatError(doneErr))
		}
	}()

	pullOpts := []containerd.RemoteOpt{
		containerd.WithPullUnpack,
		containerd.WithPlatform(platforms.Format(platforms.DefaultSpec())),
		containerd.WithResolver(buildResolver(c.opts.Credentials)),
		containerd.WithImageHandler(progressHandler(progress)),
	}
	if c.opts.Snapshotter != "" {
		pullOpts = append(pullOpts, containerd.WithPullSnapshotter(c.opts.Snapshotter))
	}

	normalized := engine.NormalizeRef(ref)
	c.logger.DebugContext(ctx, "pulling image", "image", normalized, "creds_count", len(c.opts.Credentials))
	if _, err = cClient.Pull(leaseCtx, normalized, pullOpts...); err != nil {
		c.logger.ErrorContext(ctx, "failed to pull image", "image", normalized, "err", formatError(err))
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	fmt.Fprintf(progress, "%s: pulled\n", normalized)
	return nil
}

func progressHandler(w io.Writer) images.Handler {
	return images.HandlerFunc(func(_ context.Context, desc ocispec.Descriptor) ([]ocispec.Descriptor, error) {
		fmt.Fprintf(w, "%s: fetching %s (%d bytes)\n", shortDigest(desc), desc.MediaType, desc.Size)
		return nil, nil
	})
}

func shortDigest(desc ocispec.Descriptor) string {
	enc := desc.Digest.Encoded()
	if len(enc) > 12 {
		return enc[:12]
	}
	return enc
}

// ensureImageUnpacked unpacks image for the configured snapshotter when a
// previous pull left it packed.
func (c *Client) ensureImageUnpacked(ctx context.Context, image containerd.Image) error {
	snapshotter := c.opts.Snapshotter

	unpacked, err := image.IsUnpacked(ctx, snapshotter)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to check if image is unpacked",
			"image", image.Name(), "snapshotter", snapshotter, "err", formatError(err))
	} else if unpacked {
		return nil
	}

	c.logger.DebugContext(ctx, "unpacking image", "image", image.Name(), "snapshotter", snapshotter)
	if err = image.Unpack(ctx, snapshotter); err != nil {
		return fmt.Errorf("failed to unpack image %s: %w", image.Name(), err)
	}
	return nil
}

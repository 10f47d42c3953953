// Copyright 2026 The Drift Authors
// This file is part of the drift library.
//
// The drift library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The drift library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the drift library. If not, see <http://www.gnu.org/licenses/>.

package seeds

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureBlobSnapshotter mirrors the published seed list to Azure Blob
// Storage as a plain-text fallback consumers can fetch over HTTPS when DNS
// propagation lags.
type AzureBlobSnapshotter struct {
	container azblob.ContainerURL
	blobName  string
}

func NewAzureBlobSnapshotter(accountName, accountKey, containerName, blobName string) (*AzureBlobSnapshotter, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("seeds: azure credential: %w", err)
	}
	pipeline := azblob.NewPipeline(cred, azblob.PipelineOptions{})
	u := fmt.Sprintf("https://%s.blob.core.windows.net/%s", accountName, containerName)
	containerURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("seeds: parse container url: %w", err)
	}
	return &AzureBlobSnapshotter{
		container: azblob.NewContainerURL(*containerURL, pipeline),
		blobName:  blobName,
	}, nil
}

func (s *AzureBlobSnapshotter) PublishAddrs(ctx context.Context, zone, name string, ips []net.IP) error {
	lines := make([]string, 0, len(ips))
	for _, ip := range ips {
		lines = append(lines, ip.String())
	}
	body := strings.Join(lines, "\n")

	blobURL := s.container.NewBlockBlobURL(s.blobName)
	_, err := blobURL.Upload(ctx, bytes.NewReader([]byte(body)), azblob.BlobHTTPHeaders{ContentType: "text/plain"}, azblob.Metadata{}, azblob.BlobAccessConditions{}, azblob.DefaultAccessTier, nil, azblob.ClientProvidedKeyOptions{}, azblob.ImmutabilityPolicyOptions{})
	if err != nil {
		return fmt.Errorf("seeds: azure blob upload: %w", err)
	}
	return nil
}

package driven

import (
	port "github.com/avillega/iptv-cache/internal/port/driven"
)

// Compile-time check that GuideBoltDBRepository implements GuideRepository interface
var _ port.GuideRepository = (*GuideBoltDBRepository)(nil)

// Compile-time check that CatalogBoltDBRepository implements CatalogRepository interface
var _ port.CatalogRepository = (*CatalogBoltDBRepository)(nil)

// Compile-time check that HTTPFetcher implements Fetcher interface
var _ port.Fetcher = (*HTTPFetcher)(nil)

// Compile-time check that M3UTransformer implements PlaylistTransformer interface
var _ port.PlaylistTransformer = (*M3UTransformer)(nil)

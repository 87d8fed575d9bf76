package npm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/integrations"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

// abbreviatedAccept requests the "corgi" packument, which omits READMEs and
// other fields peerguard never reads.
const abbreviatedAccept = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8"

// ErrNoMatchingVersion is returned when no published version satisfies the
// requested range.
var ErrNoMatchingVersion = errors.New("no published version satisfies range")

// Client queries peer-dependency metadata from an npm-compatible registry.
type Client struct {
	*integrations.Client
	baseURL string
	keyer   cache.Keyer
}

// Options configures a Client. Zero values select the public registry, a
// disabled cache and a 24h TTL.
type Options struct {
	BaseURL  string
	Cache    cache.Cache
	Keyer    cache.Keyer
	CacheTTL time.Duration
}

// NewClient creates a registry client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultRegistry
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	headers := map[string]string{"Accept": abbreviatedAccept}
	return &Client{
		Client:  integrations.NewClient(opts.Cache, "", opts.CacheTTL, headers),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		keyer:   opts.Keyer,
	}
}

// BaseURL returns the registry URL the client queries.
func (c *Client) BaseURL() string { return c.baseURL }

// peerResult is the cached form of a lookup. Found distinguishes "declares no
// peer on subject" from a cache miss.
type peerResult struct {
	Version string `json:"version"`
	Range   string `json:"range"`
	Found   bool   `json:"found"`
}

// PeerRequirement returns the range that pkg, resolved at versionRange,
// declares in peerDependencies for subject. ok is false when the selected
// version declares no such peer.
//
// Errors wrap [integrations.ErrNotFound] for unknown packages,
// [integrations.ErrNetwork] for transport failures and [ErrNoMatchingVersion]
// when nothing published satisfies versionRange.
func (c *Client) PeerRequirement(ctx context.Context, pkg, versionRange, subject string) (peer string, ok bool, err error) {
	pkg = strings.TrimSpace(pkg)
	key := c.keyer.PeerKey(c.baseURL, pkg, versionRange+"|"+subject)

	var res peerResult
	err = c.Cached(ctx, key, false, &res, func() error {
		return c.fetchPeer(ctx, pkg, versionRange, subject, &res)
	})
	if err != nil {
		return "", false, err
	}
	return res.Range, res.Found, nil
}

func (c *Client) fetchPeer(ctx context.Context, pkg, versionRange, subject string, res *peerResult) error {
	var doc packument
	if err := c.Get(ctx, c.baseURL+"/"+EscapeName(pkg), &doc); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, pkg)
		}
		return err
	}

	version, err := doc.resolve(versionRange)
	if err != nil {
		return fmt.Errorf("%s@%s: %w", pkg, versionRange, err)
	}

	peer, found := doc.Versions[version].PeerDependencies[subject]
	*res = peerResult{Version: version, Range: peer, Found: found}
	return nil
}

// EscapeName encodes a package name for use as a registry path segment.
// Scoped names keep their leading "@" and encode the slash, as npm does.
func EscapeName(pkg string) string {
	if strings.HasPrefix(pkg, "@") {
		if scope, name, ok := strings.Cut(pkg[1:], "/"); ok {
			return "@" + url.PathEscape(scope) + "%2f" + url.PathEscape(name)
		}
	}
	return url.PathEscape(pkg)
}

type packument struct {
	Name     string                    `json:"name"`
	DistTags map[string]string         `json:"dist-tags"`
	Versions map[string]versionDetails `json:"versions"`
}

type versionDetails struct {
	Version          string            `json:"version"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// resolve picks the version npm would install for versionRange: a dist-tag
// name resolves through dist-tags, an empty range or "*" to latest, anything
// else to the highest published version satisfying the range. Prereleases
// only match ranges that name a prerelease.
func (p *packument) resolve(versionRange string) (string, error) {
	rng := strings.TrimSpace(versionRange)
	if v, ok := p.DistTags[rng]; ok {
		return p.present(v)
	}
	if rng == "" || rng == "*" || rng == "x" {
		return p.present(p.DistTags["latest"])
	}

	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return "", fmt.Errorf("unsupported range %q: %w", rng, err)
	}

	candidates := make([]*semver.Version, 0, len(p.Versions))
	for raw := range p.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if constraint.Check(v) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoMatchingVersion
	}
	sort.Sort(sort.Reverse(semver.Collection(candidates)))
	return candidates[0].Original(), nil
}

func (p *packument) present(v string) (string, error) {
	if _, ok := p.Versions[v]; !ok || v == "" {
		return "", ErrNoMatchingVersion
	}
	return v, nil
}

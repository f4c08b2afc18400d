// internal/attachment/fetcher.go
package attachment

import (
    "fmt"
    "io"
    "net/http"
    "time"
)

// Ref points at a stored attachment.
type Ref struct {
    Name string
    URL  string
}

// File is a fetched attachment.
type File struct {
    Name string
    Data []byte
}

const maxRedirects = 5

// Fetcher resolves attachment references to in-memory buffers. Redirects
// are followed by hand so a redirect chain that ends in a non-success
// status produces an error naming the attachment instead of silently
// returning the error page body.
type Fetcher struct {
    Client *http.Client
}

func NewFetcher() *Fetcher {
    return &Fetcher{
        Client: &http.Client{
            Timeout: 30 * time.Second,
            CheckRedirect: func(req *http.Request, via []*http.Request) error {
                return http.ErrUseLastResponse
            },
        },
    }
}

// FetchAll resolves every reference, preserving input order. The first
// failure aborts the whole fetch; recipients should never get a partial
// attachment set.
func (f *Fetcher) FetchAll(refs []Ref) ([]File, error) {
    files := make([]File, len(refs))
    for i, ref := range refs {
        data, err := f.fetch(ref.URL, 0)
        if err != nil {
            return nil, fmt.Errorf("fetch attachment %q: %w", ref.Name, err)
        }
        files[i] = File{Name: ref.Name, Data: data}
    }
    return files, nil
}

func (f *Fetcher) fetch(url string, depth int) ([]byte, error) {
    if depth > maxRedirects {
        return nil, fmt.Errorf("too many redirects")
    }

    resp, err := f.Client.Get(url)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()

    if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
        location := resp.Header.Get("Location")
        if location == "" {
            return nil, fmt.Errorf("redirect (%d) without Location header", resp.StatusCode)
        }
        next, err := resp.Request.URL.Parse(location)
        if err != nil {
            return nil, fmt.Errorf("bad redirect location %q: %w", location, err)
        }
        return f.fetch(next.String(), depth+1)
    }

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
    }

    return io.ReadAll(resp.Body)
}

// internal/mailer/mailer.go
package mailer

import (
    "bytes"
    "encoding/json"
    "fmt"
    "io"
    "mime/multipart"
    "net/http"
    "sync"
    "time"
)

// Attachment is a resolved file ready to go on the wire.
type Attachment struct {
    Filename string
    Data     []byte
}

// Message holds everything Mailgun needs for one send. For SendMany the
// To field is filled in per recipient from the shared message.
type Message struct {
    To          string
    From        string
    ReplyTo     string
    Subject     string
    HTML        string
    Text        string
    Attachments []Attachment
}

// SendResult is the per-recipient outcome. Provider failures are captured
// here, never raised, so one bad recipient cannot abort its siblings.
type SendResult struct {
    Recipient string
    Success   bool
    MessageID string
    Error     string
}

// Sender is what the send pipeline depends on.
type Sender interface {
    SendOne(msg Message) SendResult
    SendMany(recipients []string, shared Message) []SendResult
}

const (
    defaultBaseURL    = "https://api.mailgun.net/v3"
    defaultBatchSize  = 50
    defaultBatchDelay = time.Second
)

// Client talks to the Mailgun messages API. Construct once and reuse.
type Client struct {
    APIKey     string
    Domain     string
    BaseURL    string
    HTTPClient *http.Client

    // Batching knobs for SendMany. Defaults respect Mailgun rate limits.
    BatchSize  int
    BatchDelay time.Duration
}

func NewClient(apiKey, domain string) *Client {
    return &Client{
        APIKey:     apiKey,
        Domain:     domain,
        BaseURL:    defaultBaseURL,
        HTTPClient: &http.Client{Timeout: 30 * time.Second},
        BatchSize:  defaultBatchSize,
        BatchDelay: defaultBatchDelay,
    }
}

// SendOne delivers a single message. It never returns an error; every
// failure mode ends up in the result so callers can keep processing.
func (c *Client) SendOne(msg Message) SendResult {
    result := SendResult{Recipient: msg.To}

    body := &bytes.Buffer{}
    writer := multipart.NewWriter(body)
    fields := map[string]string{
        "from":    msg.From,
        "to":      msg.To,
        "subject": msg.Subject,
    }
    if msg.HTML != "" {
        fields["html"] = msg.HTML
    }
    if msg.Text != "" {
        fields["text"] = msg.Text
    }
    if msg.ReplyTo != "" {
        fields["h:Reply-To"] = msg.ReplyTo
    }
    for k, v := range fields {
        if err := writer.WriteField(k, v); err != nil {
            result.Error = fmt.Sprintf("build request: %v", err)
            return result
        }
    }
    for _, att := range msg.Attachments {
        part, err := writer.CreateFormFile("attachment", att.Filename)
        if err != nil {
            result.Error = fmt.Sprintf("build attachment %s: %v", att.Filename, err)
            return result
        }
        if _, err := part.Write(att.Data); err != nil {
            result.Error = fmt.Sprintf("build attachment %s: %v", att.Filename, err)
            return result
        }
    }
    if err := writer.Close(); err != nil {
        result.Error = fmt.Sprintf("build request: %v", err)
        return result
    }

    url := fmt.Sprintf("%s/%s/messages", c.BaseURL, c.Domain)
    req, err := http.NewRequest("POST", url, body)
    if err != nil {
        result.Error = fmt.Sprintf("build request: %v", err)
        return result
    }
    req.Header.Set("Content-Type", writer.FormDataContentType())
    req.SetBasicAuth("api", c.APIKey)

    resp, err := c.HTTPClient.Do(req)
    if err != nil {
        result.Error = err.Error()
        return result
    }
    defer resp.Body.Close()

    var mgResp struct {
        ID      string `json:"id"`
        Message string `json:"message"`
    }
    raw, _ := io.ReadAll(resp.Body)
    _ = json.Unmarshal(raw, &mgResp)

    if resp.StatusCode != http.StatusOK {
        if mgResp.Message != "" {
            result.Error = fmt.Sprintf("mailgun error (%d): %s", resp.StatusCode, mgResp.Message)
        } else {
            result.Error = fmt.Sprintf("mailgun error (%d)", resp.StatusCode)
        }
        return result
    }

    result.Success = true
    result.MessageID = mgResp.ID
    return result
}

// SendMany sends the shared message to every recipient, in fixed-size
// batches. Sends inside a batch run concurrently; between batches a fixed
// pause keeps us under the provider rate limit. Results come back in input
// order, one per recipient.
func (c *Client) SendMany(recipients []string, shared Message) []SendResult {
    batchSize := c.BatchSize
    if batchSize <= 0 {
        batchSize = defaultBatchSize
    }

    results := make([]SendResult, len(recipients))
    for start := 0; start < len(recipients); start += batchSize {
        end := start + batchSize
        if end > len(recipients) {
            end = len(recipients)
        }

        var wg sync.WaitGroup
        for i := start; i < end; i++ {
            wg.Add(1)
            go func(idx int) {
                defer wg.Done()
                msg := shared
                msg.To = recipients[idx]
                results[idx] = c.SendOne(msg)
            }(i)
        }
        wg.Wait()

        if end < len(recipients) && c.BatchDelay > 0 {
            time.Sleep(c.BatchDelay)
        }
    }
    return results
}

var _ Sender = (*Client)(nil)

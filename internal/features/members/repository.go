// Package members — repository.go читает stat.json по HTTP.
// Документ внешний и только для чтения: один GET без авторизации.
package members

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

// maxFeedSize — предел размера документа, чтобы битый ответ не съел память.
const maxFeedSize = 8 << 20

// HTTPError — сервер ответил не 2xx.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ошибка HTTP: %d", e.StatusCode)
}

// ParseError — ответ не разобрался как JSON нужной схемы.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("некорректный JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Repository загружает документ со статусами.
type Repository struct {
	statsURL string
	client   *http.Client
	now      func() time.Time
}

// NewRepository создаёт репозиторий для statsURL с таймаутом запроса.
func NewRepository(statsURL string, timeout time.Duration) *Repository {
	return &Repository{
		statsURL: statsURL,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Fetch выполняет GET {statsURL}?t=<unix ms>. Параметр t защищает от кэширования.
func (r *Repository) Fetch(ctx context.Context) (*Feed, error) {
	u, err := url.Parse(r.statsURL)
	if err != nil {
		return nil, fmt.Errorf("некорректный STATS_URL: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(r.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Дочитываем тело, чтобы соединение вернулось в пул
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var feed Feed
	if err := sonic.Unmarshal(body, &feed); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &feed, nil
}

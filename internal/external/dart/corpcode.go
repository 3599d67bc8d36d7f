package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// ErrCorpNotFound is returned when a stock code has no DART corp_code
var ErrCorpNotFound = errors.New("dart corp code not found")

type corpCodeXML struct {
	List []struct {
		CorpCode  string `xml:"corp_code"`
		CorpName  string `xml:"corp_name"`
		StockCode string `xml:"stock_code"`
	} `xml:"list"`
}

// CorpCode resolves a 6-digit stock code to the 8-digit DART corp_code.
// The registry is downloaded once and kept for the life of the client;
// a failed download is retried on the next call.
func (c *Client) CorpCode(ctx context.Context, stockCode string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry == nil {
		registry, err := c.loadRegistry(ctx)
		if err != nil {
			return "", err
		}
		c.registry = registry
	}

	corp, ok := c.registry[stockCode]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCorpNotFound, stockCode)
	}
	return corp, nil
}

// Preload downloads the corp code registry ahead of per-instrument lookups
func (c *Client) Preload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry != nil {
		return nil
	}
	registry, err := c.loadRegistry(ctx)
	if err != nil {
		return err
	}
	c.registry = registry
	return nil
}

const (
	registryCacheKey = "dart:corpcode"
	registryCacheTTL = 24 * time.Hour
)

func (c *Client) loadRegistry(ctx context.Context) (map[string]string, error) {
	if c.opts.Cache != nil {
		var cached map[string]string
		found, err := c.opts.Cache.Get(ctx, registryCacheKey, &cached)
		if err != nil {
			c.logger.WithError(err).Warn("Corp code cache read failed")
		}
		if found && len(cached) > 0 {
			c.logger.WithField("count", len(cached)).Debug("Loaded DART corp code registry from cache")
			return cached, nil
		}
	}

	u := c.opts.BaseURL + "/corpCode.xml?" + url.Values{"crtfc_key": {c.opts.APIKey}}.Encode()

	data, err := c.httpClient.GetBytes(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("download corp codes: %w", err)
	}

	registry, err := parseCorpCodes(data)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(registry)).Info("Loaded DART corp code registry")

	if c.opts.Cache != nil {
		if err := c.opts.Cache.Set(ctx, registryCacheKey, registry, registryCacheTTL); err != nil {
			c.logger.WithError(err).Warn("Corp code cache write failed")
		}
	}
	return registry, nil
}

// parseCorpCodes reads CORPCODE.xml out of the zip archive. Unlisted
// companies (blank stock_code) are skipped.
func parseCorpCodes(data []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// 키 오류 등은 zip 대신 status JSON/XML 로 응답
		return nil, fmt.Errorf("corp code archive: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("corp code archive is empty")
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open corp code file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read corp code file: %w", err)
	}

	var parsed corpCodeXML
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode corp code xml: %w", err)
	}

	registry := make(map[string]string, len(parsed.List))
	for _, item := range parsed.List {
		stock := strings.TrimSpace(item.StockCode)
		if stock == "" {
			continue
		}
		registry[stock] = strings.TrimSpace(item.CorpCode)
	}
	return registry, nil
}

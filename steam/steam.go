// Package steam contains a minimal client for the public Steam catalog: the
// full app list (for autocomplete) and per-app store details (for pre-filling
// new games).
package steam

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gemuki/bot/telemetry"
)

// ErrAppNotFound is returned when the store has no details for an app id.
var ErrAppNotFound = errors.New("steam app not found")

// maxBody caps response size; the full app list is a few tens of MB.
const maxBody = 64 << 20

// Client talks to the Steam Web API and the store API.
type Client struct {
	APIBase    string // e.g. https://api.steampowered.com
	StoreBase  string // e.g. https://store.steampowered.com
	Country    string // price/region code passed as cc
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// App is one entry of the app list.
type App struct {
	ID   uint32
	Name string
}

// Title returns the display name used in autocomplete.
func (a App) Title() string { return strings.TrimSpace(a.Name) }

// AppDetails holds the store fields the bot uses.
type AppDetails struct {
	ID               uint32
	Name             string
	Type             string
	ShortDescription string
	AboutTheGame     string
	HeaderImage      string
	Website          string
	Developers       []string
	Publishers       []string
	Genres           []string
	ReleaseDate      string
	IsFree           bool
	Price            string
	storeBase        string
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Description returns the short description, falling back to the about text without markup.
func (d AppDetails) Description() string {
	if s := strings.TrimSpace(html.UnescapeString(d.ShortDescription)); s != "" {
		return s
	}
	about := tagPattern.ReplaceAllString(d.AboutTheGame, " ")
	return strings.Join(strings.Fields(html.UnescapeString(about)), " ")
}

// StorePage returns the store URL of the app.
func (d AppDetails) StorePage() string {
	base := d.storeBase
	if base == "" {
		base = "https://store.steampowered.com"
	}
	return fmt.Sprintf("%s/app/%d", strings.TrimRight(base, "/"), d.ID)
}

func (c *Client) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.ObserveSteam(endpoint, err)
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("steam %s: unexpected status %d", endpoint, resp.StatusCode)
		telemetry.ObserveSteam(endpoint, err)
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	telemetry.ObserveSteam(endpoint, err)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("steam %s: invalid json", endpoint)
	}
	return body, nil
}

// ListApps returns every named app of the catalog.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	body, err := c.get(ctx, "applist", strings.TrimRight(c.APIBase, "/")+"/ISteamApps/GetAppList/v2/")
	if err != nil {
		return nil, err
	}
	apps := gjson.GetBytes(body, "applist.apps")
	if !apps.IsArray() {
		return nil, fmt.Errorf("steam applist: missing applist.apps")
	}
	out := make([]App, 0, len(apps.Array()))
	apps.ForEach(func(_, v gjson.Result) bool {
		a := App{ID: uint32(v.Get("appid").Uint()), Name: v.Get("name").String()}
		if a.Title() != "" {
			out = append(out, a)
		}
		return true
	})
	return out, nil
}

// GetAppDetails fetches the store details of one app.
func (c *Client) GetAppDetails(ctx context.Context, id uint32) (AppDetails, error) {
	key := strconv.FormatUint(uint64(id), 10)
	url := fmt.Sprintf("%s/api/appdetails?appids=%s", strings.TrimRight(c.StoreBase, "/"), key)
	if c.Country != "" {
		url += "&cc=" + c.Country
	}
	body, err := c.get(ctx, "appdetails", url)
	if err != nil {
		return AppDetails{}, err
	}
	entry := gjson.GetBytes(body, gjson.Escape(key))
	if !entry.Exists() || !entry.Get("success").Bool() {
		return AppDetails{}, ErrAppNotFound
	}
	d := entry.Get("data")
	details := AppDetails{
		ID:               uint32(d.Get("steam_appid").Uint()),
		Name:             d.Get("name").String(),
		Type:             d.Get("type").String(),
		ShortDescription: d.Get("short_description").String(),
		AboutTheGame:     d.Get("about_the_game").String(),
		HeaderImage:      d.Get("header_image").String(),
		Website:          d.Get("website").String(),
		ReleaseDate:      d.Get("release_date.date").String(),
		IsFree:           d.Get("is_free").Bool(),
		Price:            d.Get("price_overview.final_formatted").String(),
		storeBase:        c.StoreBase,
	}
	if details.ID == 0 {
		details.ID = id
	}
	for _, v := range d.Get("developers").Array() {
		details.Developers = append(details.Developers, v.String())
	}
	for _, v := range d.Get("publishers").Array() {
		details.Publishers = append(details.Publishers, v.String())
	}
	for _, v := range d.Get("genres.#.description").Array() {
		details.Genres = append(details.Genres, v.String())
	}
	return details, nil
}

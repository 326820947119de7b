package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Source reads the raw grid of one catalog tab. The first row holds headers.
type Source interface {
	Name() string
	Values(ctx context.Context, tab string) ([][]string, error)
}

// SheetsSource reads tabs from a Google Sheets spreadsheet with a service
// account.
type SheetsSource struct {
	spreadsheetID string
	svc           *sheets.Service
}

func NewSheetsSource(ctx context.Context, spreadsheetID, clientEmail, privateKey string) (*SheetsSource, error) {
	if spreadsheetID == "" || clientEmail == "" || privateKey == "" {
		return nil, fmt.Errorf("sheets source requires spreadsheet id, client email and private key")
	}

	conf := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(strings.ReplaceAll(privateKey, `\n`, "\n")),
		Scopes:     []string{sheets.SpreadsheetsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsSource{spreadsheetID: spreadsheetID, svc: svc}, nil
}

func (s *SheetsSource) Name() string { return s.spreadsheetID }

func (s *SheetsSource) Values(ctx context.Context, tab string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, tab+"!A:ZZ").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet tab %s: %w", tab, err)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = fmt.Sprint(cell)
		}
		out[i] = cells
	}
	return out, nil
}

// StaticSource serves fixed grids per tab. It stands in for the spreadsheet
// when no credentials are configured.
type StaticSource struct {
	name string
	tabs map[string][][]string
}

func NewStaticSource(name string, tabs map[string][][]string) *StaticSource {
	return &StaticSource{name: name, tabs: tabs}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Values(_ context.Context, tab string) ([][]string, error) {
	return s.tabs[tab], nil
}

var mockHeader = []string{
	"day", "task_id", "task_order", "task_type", "title", "instructions", "estimated_time",
	"platform", "product_type", "goal", "time_mode", "level",
	"credits_cost", "ai_support_available", "ai_prompt_template", "ai_variables", "ai_feature_id",
}

// MockSource is the catalog used when the spreadsheet is not connected.
func MockSource() *StaticSource {
	return NewStaticSource("mock", map[string][][]string{
		"TASKS_30D": {
			mockHeader,
			{"1", "MOCK-1", "1", "ACTION", "Setup your Profile",
				"Complete your onboarding profile to get personalized tasks. (Mock task: the catalog spreadsheet is not connected)",
				"15", "BOTH", "ALL", "ALL", "15", "BEGINNER", "0", "YES",
				"Give me a welcome message for {platform}.", "platform", "welcome_msg"},
			{"1", "MOCK-2", "2", "ACTION", "Post your first story", "Share a behind-the-scenes photo.",
				"10", "IG", "ALL", "BRAND", "15", "BEGINNER", "", "", "", "", ""},
		},
		"TASKS_PRO_60": {mockHeader},
	})
}

package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

// TicketData is everything printed on one admission ticket. Code is the raw
// redemption code encoded in the QR symbol; DisplayCode is the grouped form.
type TicketData struct {
	TicketID    string
	OrderID     string
	EventName   string
	StartsAt    *time.Time
	TierName    string
	HolderName  string
	UnitPrice   int64
	Currency    string
	Code        string
	DisplayCode string
	Status      string
	IssuedAt    time.Time
}

var ErrMissingCode = errors.New("ticket code is required")

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateTicket(ctx context.Context, data TicketData) (io.Reader, error) {
	if strings.TrimSpace(data.Code) == "" {
		return nil, ErrMissingCode
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, data.EventName, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, strings.ToUpper(data.Status), props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Tier: "+data.TierName, props.Text{Top: 0}),
			text.New("Holder: "+data.HolderName, props.Text{Top: 6}),
			text.New("Price: "+FormatAmount(data.UnitPrice, data.Currency), props.Text{Top: 12}),
			text.New("Starts: "+formatTime(data.StartsAt), props.Text{Top: 18}),
		),
		col.New(6).Add(
			text.New("Ticket "+data.TicketID, props.Text{Size: 8, Align: align.Right}),
			text.New("Order "+data.OrderID, props.Text{Size: 8, Align: align.Right, Top: 5}),
			text.New("Issued "+data.IssuedAt.UTC().Format(time.RFC3339), props.Text{Size: 8, Align: align.Right, Top: 10}),
		),
	)

	m.AddRow(5, line.NewCol(12))

	m.AddRow(70,
		col.New(3),
		code.NewQrCol(6, data.Code, props.Rect{
			Center:  true,
			Percent: 100,
		}),
		col.New(3),
	)

	m.AddRow(15,
		text.NewCol(12, data.DisplayCode, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Center,
			Top:   4,
		}),
	)

	m.AddRow(10,
		text.NewCol(12, "Present this code at the entrance. It admits one person once.", props.Text{
			Size:  8,
			Align: align.Center,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

// FormatAmount renders minor units as a decimal amount with its currency.
func FormatAmount(minor int64, currency string) string {
	amount := decimal.New(minor, -2).StringFixed(2)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "TBA"
	}
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

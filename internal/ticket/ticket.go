// Package ticket renders a booking as a printable PDF e-ticket.
package ticket

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/shiva/tripbook/internal/model"
)

// ContentType is the MIME type of a rendered ticket.
const ContentType = "application/pdf"

// Filename is the download name for b's ticket.
func Filename(b *model.Booking) string {
	return fmt.Sprintf("ticket-%s.pdf", b.ID)
}

// Render returns the PDF e-ticket for b. Cancelled bookings and bookings
// whose trip was removed still render, with a banner saying so.
func Render(b *model.Booking) ([]byte, error) {
	return render(b, true)
}

func render(b *model.Booking, compress bool) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle("E-Ticket "+b.ID.String(), true)
	pdf.AddPage()

	// The core fonts are cp1252; city and user names arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	if banner := statusBanner(b); banner != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(200, 0, 0)
		pdf.Cell(0, 8, banner)
		pdf.Ln(10)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking      : " + b.ID.String(),
		"Passenger    : " + b.UserID,
		"Route        : " + b.Trip.Origin + " -> " + b.Trip.Destination,
		"Departure    : " + b.Trip.DepartureDate.Format(model.DateLayout) + " " + b.Trip.DepartureTime,
		"Seats        : " + seatLabels(b.Seats),
		"Payment      : " + string(b.PaymentMethod),
		"Booked at    : " + b.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, tr(s))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+FormatCents(b.TotalCents))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this ticket at boarding. One seat per passenger.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket %s: %w", b.ID, err)
	}
	return buf.Bytes(), nil
}

func statusBanner(b *model.Booking) string {
	switch {
	case b.Status == model.StatusCancelled:
		return "CANCELLED - NOT VALID FOR TRAVEL"
	case b.TripRemoved:
		return "TRIP NO LONGER SCHEDULED"
	}
	return ""
}

func seatLabels(seats []model.SeatSnapshot) string {
	labels := make([]string, len(seats))
	for i, s := range seats {
		labels[i] = s.Label
	}
	return strings.Join(labels, ", ")
}

// FormatCents renders an amount in cents as dollars, e.g. 4550 -> "$45.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

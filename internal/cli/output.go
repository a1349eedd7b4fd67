package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
	"github.com/sanosuguru/go-seat-reservation/internal/view"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", formatText, "出力形式 (text|json)")
}

// printer は -o フラグに従って結果を書き出す
type printer struct {
	w      io.Writer
	format string
	loc    *time.Location
}

func newPrinter(cmd *cobra.Command) (*printer, error) {
	format := formatText
	if f := cmd.Flags().Lookup("output"); f != nil {
		format = f.Value.String()
	}
	switch format {
	case formatText, formatJSON:
	default:
		return nil, fmt.Errorf("出力形式が不正です: %s (text か json)", format)
	}
	return &printer{w: cmd.OutOrStdout(), format: format, loc: time.Local}, nil
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) seats(seats []dto.SeatResponse) error {
	if p.format == formatJSON {
		return p.json(seats)
	}
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tOCCUPANT\tUNTIL")
	for _, s := range seats {
		occupant, until := "-", "-"
		if s.OccupantName != nil {
			occupant = *s.OccupantName
		} else if s.OccupantID != nil {
			occupant = *s.OccupantID
		}
		if s.BookedUntil != nil {
			until = s.BookedUntil.In(p.loc).Format("15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.State, occupant, until)
	}
	return w.Flush()
}

func (p *printer) seat(s dto.SeatResponse) error {
	if p.format == formatJSON {
		return p.json(s)
	}
	return p.seats([]dto.SeatResponse{s})
}

func (p *printer) occupants(list []dto.OccupantResponse) error {
	if p.format == formatJSON {
		return p.json(list)
	}
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tSEAT")
	for _, o := range list {
		seatID := "-"
		if o.SeatID != nil {
			seatID = *o.SeatID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.ID, o.Name, o.Role, seatID)
	}
	return w.Flush()
}

func (p *printer) tiles(tiles []view.Tile) error {
	if p.format == formatJSON {
		return p.json(tiles)
	}
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEAT\tLABEL\tOCCUPANT\t")
	for _, t := range tiles {
		occupant := ""
		if t.OccupantName != nil {
			occupant = *t.OccupantName
		}
		mark := ""
		switch {
		case t.Mine:
			mark = "*"
		case !t.Clickable:
			mark = "x"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.SeatID, t.Label, occupant, mark)
	}
	return w.Flush()
}

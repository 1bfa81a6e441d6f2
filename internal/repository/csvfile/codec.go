package csvfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/repository/memory"
)

const (
	UsersFile    = "users.csv"
	ToolsFile    = "tools.csv"
	BookingsFile = "bookings.csv"
	SwapsFile    = "swaps.csv"
)

// Files lists the record-set files in the order they are written.
var Files = []string{UsersFile, ToolsFile, BookingsFile, SwapsFile}

type codec[T any] struct {
	header []string
	encode func(T) []string
	decode func(row) (T, error)
}

// row resolves columns by header name so files with reordered or missing
// optional columns still load.
type row struct {
	index  map[string]int
	values []string
	line   int
}

func (r row) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r row) int64(col string) (int64, error) {
	v := r.get(col)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, fmt.Errorf("line %d: column %s: %w", r.line, col, err)
		}
		n = int64(f)
	}
	return n, nil
}

func (r row) float(col string) (float64, error) {
	v := r.get(col)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", r.line, col, err)
	}
	return f, nil
}

func (r row) bool(col string) (bool, error) {
	v := r.get(col)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("line %d: column %s: %w", r.line, col, err)
	}
	return b, nil
}

func (r row) decimal(col string) (decimal.Decimal, error) {
	v := r.get(col)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("line %d: column %s: %w", r.line, col, err)
	}
	return d, nil
}

func (r row) time(col string) (time.Time, error) {
	v := r.get(col)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{domain.TimestampLayout, time.RFC3339Nano, domain.DateLayout} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("line %d: column %s: unrecognised timestamp %q", r.line, col, v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(domain.TimestampLayout)
}

func encode[T any](w io.Writer, c codec[T], items []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(c.header); err != nil {
		return err
	}
	for _, item := range items {
		if err := cw.Write(c.encode(item)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decode[T any](r io.Reader, c codec[T]) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		index[strings.TrimSpace(col)] = i
	}
	out := make([]T, 0, len(records)-1)
	for i, values := range records[1:] {
		item, err := c.decode(row{index: index, values: values, line: i + 2})
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

var userCodec = codec[domain.User]{
	header: []string{"username", "name", "email", "password_hash", "created_at"},
	encode: func(u domain.User) []string {
		return []string{u.Username, u.Name, u.Email, u.PasswordHash, formatTime(u.CreatedAt)}
	},
	decode: func(r row) (domain.User, error) {
		created, err := r.time("created_at")
		if err != nil {
			return domain.User{}, err
		}
		return domain.User{
			Username:     r.get("username"),
			Name:         r.get("name"),
			Email:        r.get("email"),
			PasswordHash: r.get("password_hash"),
			CreatedAt:    created,
		}, nil
	},
}

var toolCodec = codec[domain.Tool]{
	header: []string{
		"id", "title", "description", "tool_type", "brand", "condition",
		"hourly_rate", "daily_rate", "deposit", "owner_username", "neighborhood",
		"latitude", "longitude", "rating", "review_count", "image_path",
		"available", "created_at", "version",
	},
	encode: func(t domain.Tool) []string {
		return []string{
			strconv.FormatInt(t.ID, 10), t.Title, t.Description, t.ToolType, t.Brand, t.Condition,
			t.HourlyRate.StringFixed(2), t.DailyRate.StringFixed(2), t.Deposit.StringFixed(2),
			t.OwnerUsername, t.Neighborhood,
			strconv.FormatFloat(t.Latitude, 'f', -1, 64), strconv.FormatFloat(t.Longitude, 'f', -1, 64),
			strconv.FormatFloat(t.Rating, 'f', -1, 64), strconv.Itoa(t.ReviewCount), t.ImagePath,
			strconv.FormatBool(t.Available), formatTime(t.CreatedAt), strconv.FormatInt(t.Version, 10),
		}
	},
	decode: func(r row) (domain.Tool, error) {
		var (
			t   domain.Tool
			err error
		)
		if t.ID, err = r.int64("id"); err != nil {
			return t, err
		}
		t.Title = r.get("title")
		t.Description = r.get("description")
		t.ToolType = r.get("tool_type")
		t.Brand = r.get("brand")
		t.Condition = r.get("condition")
		t.OwnerUsername = r.get("owner_username")
		t.Neighborhood = r.get("neighborhood")
		t.ImagePath = r.get("image_path")
		if t.HourlyRate, err = r.decimal("hourly_rate"); err != nil {
			return t, err
		}
		if t.DailyRate, err = r.decimal("daily_rate"); err != nil {
			return t, err
		}
		if t.Deposit, err = r.decimal("deposit"); err != nil {
			return t, err
		}
		if t.Latitude, err = r.float("latitude"); err != nil {
			return t, err
		}
		if t.Longitude, err = r.float("longitude"); err != nil {
			return t, err
		}
		if t.Rating, err = r.float("rating"); err != nil {
			return t, err
		}
		reviews, err := r.int64("review_count")
		if err != nil {
			return t, err
		}
		t.ReviewCount = int(reviews)
		if t.Available, err = r.bool("available"); err != nil {
			return t, err
		}
		if t.CreatedAt, err = r.time("created_at"); err != nil {
			return t, err
		}
		if t.Version, err = r.int64("version"); err != nil {
			return t, err
		}
		if t.Version == 0 {
			t.Version = 1
		}
		return t, nil
	},
}

var bookingCodec = codec[domain.Booking]{
	header: []string{
		"id", "tool_id", "owner_username", "renter_username", "start_date", "end_date",
		"total_cost", "status", "created_at", "updated_at", "version",
	},
	encode: func(b domain.Booking) []string {
		return []string{
			strconv.FormatInt(b.ID, 10), strconv.FormatInt(b.ToolID, 10), b.OwnerUsername, b.RenterUsername,
			b.StartDate, b.EndDate, b.TotalCost.StringFixed(2), string(b.Status),
			formatTime(b.CreatedAt), formatTime(b.UpdatedAt), strconv.FormatInt(b.Version, 10),
		}
	},
	decode: func(r row) (domain.Booking, error) {
		var (
			b   domain.Booking
			err error
		)
		if b.ID, err = r.int64("id"); err != nil {
			return b, err
		}
		if b.ToolID, err = r.int64("tool_id"); err != nil {
			return b, err
		}
		b.OwnerUsername = r.get("owner_username")
		b.RenterUsername = r.get("renter_username")
		b.StartDate = r.get("start_date")
		b.EndDate = r.get("end_date")
		b.Status = domain.BookingStatus(r.get("status"))
		if b.TotalCost, err = r.decimal("total_cost"); err != nil {
			return b, err
		}
		if b.CreatedAt, err = r.time("created_at"); err != nil {
			return b, err
		}
		if b.UpdatedAt, err = r.time("updated_at"); err != nil {
			return b, err
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = b.CreatedAt
		}
		if b.Version, err = r.int64("version"); err != nil {
			return b, err
		}
		if b.Version == 0 {
			b.Version = 1
		}
		return b, nil
	},
}

var swapCodec = codec[domain.Swap]{
	header: []string{
		"id", "proposer_username", "proposer_tool_id", "receiver_username", "receiver_tool_id",
		"status", "proposed_date", "accepted_date", "version",
	},
	encode: func(s domain.Swap) []string {
		accepted := ""
		if s.AcceptedDate != nil {
			accepted = formatTime(*s.AcceptedDate)
		}
		return []string{
			strconv.FormatInt(s.ID, 10), s.ProposerUsername, strconv.FormatInt(s.ProposerToolID, 10),
			s.ReceiverUsername, strconv.FormatInt(s.ReceiverToolID, 10), string(s.Status),
			formatTime(s.ProposedDate), accepted, strconv.FormatInt(s.Version, 10),
		}
	},
	decode: func(r row) (domain.Swap, error) {
		var (
			s   domain.Swap
			err error
		)
		if s.ID, err = r.int64("id"); err != nil {
			return s, err
		}
		if s.ProposerToolID, err = r.int64("proposer_tool_id"); err != nil {
			return s, err
		}
		if s.ReceiverToolID, err = r.int64("receiver_tool_id"); err != nil {
			return s, err
		}
		s.ProposerUsername = r.get("proposer_username")
		s.ReceiverUsername = r.get("receiver_username")
		s.Status = domain.SwapStatus(r.get("status"))
		if s.ProposedDate, err = r.time("proposed_date"); err != nil {
			return s, err
		}
		accepted, err := r.time("accepted_date")
		if err != nil {
			return s, err
		}
		if !accepted.IsZero() {
			s.AcceptedDate = &accepted
		}
		if s.Version, err = r.int64("version"); err != nil {
			return s, err
		}
		if s.Version == 0 {
			s.Version = 1
		}
		return s, nil
	},
}

// EncodeSnapshot renders every collection as CSV, keyed by file name.
func EncodeSnapshot(snap memory.Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Files))
	var buf bytes.Buffer
	if err := encode(&buf, userCodec, snap.Users); err != nil {
		return nil, fmt.Errorf("encode users: %w", err)
	}
	out[UsersFile] = append([]byte(nil), buf.Bytes()...)
	buf.Reset()
	if err := encode(&buf, toolCodec, snap.Tools); err != nil {
		return nil, fmt.Errorf("encode tools: %w", err)
	}
	out[ToolsFile] = append([]byte(nil), buf.Bytes()...)
	buf.Reset()
	if err := encode(&buf, bookingCodec, snap.Bookings); err != nil {
		return nil, fmt.Errorf("encode bookings: %w", err)
	}
	out[BookingsFile] = append([]byte(nil), buf.Bytes()...)
	buf.Reset()
	if err := encode(&buf, swapCodec, snap.Swaps); err != nil {
		return nil, fmt.Errorf("encode swaps: %w", err)
	}
	out[SwapsFile] = append([]byte(nil), buf.Bytes()...)
	return out, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot. Missing files decode to
// empty collections. Bookings written without an owner column get the owner
// of their tool.
func DecodeSnapshot(files map[string]io.Reader) (memory.Snapshot, error) {
	var (
		snap memory.Snapshot
		err  error
	)
	if r, ok := files[UsersFile]; ok {
		if snap.Users, err = decode(r, userCodec); err != nil {
			return snap, fmt.Errorf("decode %s: %w", UsersFile, err)
		}
	}
	if r, ok := files[ToolsFile]; ok {
		if snap.Tools, err = decode(r, toolCodec); err != nil {
			return snap, fmt.Errorf("decode %s: %w", ToolsFile, err)
		}
	}
	if r, ok := files[BookingsFile]; ok {
		if snap.Bookings, err = decode(r, bookingCodec); err != nil {
			return snap, fmt.Errorf("decode %s: %w", BookingsFile, err)
		}
	}
	if r, ok := files[SwapsFile]; ok {
		if snap.Swaps, err = decode(r, swapCodec); err != nil {
			return snap, fmt.Errorf("decode %s: %w", SwapsFile, err)
		}
	}

	owners := make(map[int64]string, len(snap.Tools))
	for _, t := range snap.Tools {
		owners[t.ID] = t.OwnerUsername
	}
	for i := range snap.Bookings {
		if snap.Bookings[i].OwnerUsername == "" {
			snap.Bookings[i].OwnerUsername = owners[snap.Bookings[i].ToolID]
		}
	}
	return snap, nil
}

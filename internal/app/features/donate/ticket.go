package donate

import (
	"errors"

	"github.com/gorilla/securecookie"
)

// ticket binds a gateway order to the amount we created it for. The browser
// carries it from /order to /confirm, so the recorded amount never comes from
// the client.
type ticket struct {
	OrderID  string `json:"o"`
	Amount   int64  `json:"a"`
	Currency string `json:"c"`
}

var errBadTicket = errors.New("donation ticket is invalid or expired")

const ticketName = "donation_order"

type ticketCodec struct {
	sc *securecookie.SecureCookie
}

func newTicketCodec(hashKey []byte) *ticketCodec {
	sc := securecookie.New(hashKey, nil)
	sc.MaxAge(60 * 60)
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &ticketCodec{sc: sc}
}

func (c *ticketCodec) encode(t ticket) (string, error) {
	return c.sc.Encode(ticketName, t)
}

// decode verifies s and checks it was issued for orderID.
func (c *ticketCodec) decode(s, orderID string) (ticket, error) {
	var t ticket
	if s == "" || c.sc.Decode(ticketName, s, &t) != nil || t.OrderID != orderID {
		return ticket{}, errBadTicket
	}
	return t, nil
}

// internal/app/features/donate/donate.go
package donate

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	errorsfeature "github.com/dalemusser/gicesite/internal/app/features/errors"
	donationstore "github.com/dalemusser/gicesite/internal/app/store/donations"
	"github.com/dalemusser/gicesite/internal/app/system/auditlog"
	"github.com/dalemusser/gicesite/internal/app/system/inputval"
	"github.com/dalemusser/gicesite/internal/app/system/jsonutil"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/payment"
	"github.com/dalemusser/gicesite/internal/app/system/throttle"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the donation page, the checkout JSON endpoints and the
// donation reports.
type Handler struct {
	store       *donationstore.Store
	checkout    payment.Checkout
	currency    string
	tickets     *ticketCodec
	limiter     *throttle.Limiter
	mail        mailer.Sender
	appName     string
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a donate Handler. ticketKey signs the order tickets
// handed to the browser. limiter and mail may be nil.
func NewHandler(
	db *mongo.Database,
	checkout payment.Checkout,
	currency string,
	ticketKey []byte,
	limiter *throttle.Limiter,
	mail mailer.Sender,
	appName string,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	if checkout == nil {
		checkout = payment.Disabled{}
	}
	if currency == "" {
		currency = "INR"
	}
	return &Handler{
		store:       donationstore.New(db),
		checkout:    checkout,
		currency:    strings.ToUpper(currency),
		tickets:     newTicketCodec(ticketKey),
		limiter:     limiter,
		mail:        mail,
		appName:     appName,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns the public routes, mounted at /donate.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Form)
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				jsonutil.Error(w, http.StatusTooManyRequests, "Too many attempts. Please wait a minute and try again.")
			})))
		}
		r.Post("/order", h.Order)
	})
	r.Post("/confirm", h.Confirm)
	r.Get("/thanks", h.Thanks)
	return r
}

// FormVM is the view model for the donation page.
type FormVM struct {
	viewdata.BaseVM
	Enabled  bool
	Currency string
	Presets  []int
}

// Form renders the donation page. Without gateway keys it explains how else
// to give.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	vm := FormVM{
		BaseVM:   viewdata.New(r),
		Enabled:  h.checkout.KeyID() != "",
		Currency: h.currency,
		Presets:  []int{500, 1000, 2500, 5000},
	}
	vm.Title = "Donate"
	templates.Render(w, r, "donate/form", vm)
}

type orderInput struct {
	Amount int64  `json:"amount"`
	Name   string `json:"name" validate:"required,max=100" label:"Your name"`
	Email  string `json:"email" validate:"max=254" label:"Email"`
	Phone  string `json:"phone" validate:"max=20" label:"Phone"`
}

type orderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
	Token    string `json:"token"`
}

// Order creates a gateway order for the requested amount and returns what
// the checkout overlay needs.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	var in orderInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid request.")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.BadRequest(w, res.First())
		return
	}
	if in.Email != "" && !inputval.IsValidEmail(in.Email) {
		jsonutil.BadRequest(w, "Please enter a valid email address.")
		return
	}
	if in.Amount < payment.MinAmount || in.Amount > payment.MaxAmount {
		jsonutil.BadRequest(w, "Please enter an amount between 1 and 100,000.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	receipt := "gice_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	order, err := h.checkout.CreateOrder(ctx, in.Amount, h.currency, receipt)
	if errors.Is(err, payment.ErrUnavailable) {
		jsonutil.Error(w, http.StatusServiceUnavailable, "Online donations are not available right now.")
		return
	}
	if err != nil {
		h.errLog.Log(r, "create donation order", err)
		jsonutil.Error(w, http.StatusBadGateway, "The payment service could not be reached. Please try again.")
		return
	}

	token, err := h.tickets.encode(ticket{OrderID: order.ID, Amount: order.Amount, Currency: order.Currency})
	if err != nil {
		h.errLog.Log(r, "sign donation ticket", err)
		jsonutil.InternalError(w, "Something went wrong. Please try again.")
		return
	}

	jsonutil.OK(w, orderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    h.checkout.KeyID(),
		Token:    token,
	})
}

type confirmInput struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	Token     string `json:"token"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

// Confirm verifies the overlay's payment signature and records the donation.
// Replaying a confirmation returns the same redirect without a second record
// or a second receipt.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var in confirmInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid request.")
		return
	}

	t, err := h.tickets.decode(in.Token, in.OrderID)
	if err != nil {
		jsonutil.BadRequest(w, "This donation session has expired. Please start again.")
		return
	}

	err = h.checkout.Verify(payment.Confirmation{
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
	})
	switch {
	case errors.Is(err, payment.ErrUnavailable):
		jsonutil.Error(w, http.StatusServiceUnavailable, "Online donations are not available right now.")
		return
	case err != nil:
		h.logger.Warn("donation signature rejected",
			zap.String("order_id", in.OrderID),
			zap.String("payment_id", in.PaymentID))
		jsonutil.BadRequest(w, "We could not verify this payment.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, created, err := h.store.Record(ctx, models.Donation{
		PaymentID:  in.PaymentID,
		OrderID:    in.OrderID,
		Amount:     t.Amount,
		Currency:   t.Currency,
		DonorName:  clip(in.Name, 100),
		DonorEmail: clip(in.Email, 254),
		DonorPhone: clip(in.Phone, 20),
		Message:    clip(in.Message, 1000),
	})
	if errors.Is(err, donationstore.ErrNoPaymentID) {
		jsonutil.BadRequest(w, "We could not verify this payment.")
		return
	}
	if err != nil {
		h.errLog.Log(r, "record donation", err)
		jsonutil.InternalError(w, "Your payment went through but we could not record it. Please contact us with your payment reference.")
		return
	}

	if created {
		h.auditLogger.DonationRecorded(ctx, r, d.PaymentID, d.Amount, d.Currency)
		h.sendReceipt(d)
	}

	jsonutil.OK(w, map[string]string{
		"redirect": "/donate/thanks?payment=" + url.QueryEscape(d.PaymentID),
	})
}

func (h *Handler) sendReceipt(d models.Donation) {
	if h.mail == nil || d.DonorEmail == "" {
		return
	}
	text, html := mailer.DonationReceivedEmail(mailer.DonationReceivedEmailData{
		AppName:   h.appName,
		DonorName: d.DonorName,
		Amount:    d.DisplayAmount(),
		PaymentID: d.PaymentID,
	})
	err := h.mail.Send(mailer.Email{
		To:       d.DonorEmail,
		Subject:  "Thank you for your donation to " + h.appName,
		TextBody: text,
		HTMLBody: html,
	})
	if err != nil {
		h.logger.Warn("donation receipt not sent", zap.String("payment_id", d.PaymentID), zap.Error(err))
	}
}

// ThanksVM is the view model for the thank-you page. Anyone holding the
// payment reference can open it, so it carries no donor details.
type ThanksVM struct {
	viewdata.BaseVM
	Amount    string
	PaymentID string
}

// Thanks shows the recorded amount when the payment reference is known, and
// a plain thank-you otherwise.
func (h *Handler) Thanks(w http.ResponseWriter, r *http.Request) {
	vm := ThanksVM{BaseVM: viewdata.New(r)}
	vm.Title = "Thank you"

	if id := strings.TrimSpace(r.URL.Query().Get("payment")); id != "" {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()
		d, err := h.store.GetByPaymentID(ctx, id)
		switch {
		case err == nil:
			vm.Amount, vm.PaymentID = d.DisplayAmount(), d.PaymentID
		case !errors.Is(err, mongo.ErrNoDocuments):
			h.errLog.Log(r, "load donation", err)
		}
	}
	templates.Render(w, r, "donate/thanks", vm)
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

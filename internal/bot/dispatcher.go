// internal/bot/dispatcher.go
package bot

import (
	"context"
	"time"

	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/errors"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/common/metrics"
	"forbill-bot/internal/common/observability"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/models"
	"forbill-bot/internal/notify"
	"forbill-bot/internal/replies"
	"forbill-bot/internal/store"
	"forbill-bot/internal/vtu"
	"forbill-bot/internal/whatsapp"
)

type handlerFunc func(ctx context.Context, user *models.User, cmd *intent.ParsedCommand) replies.Reply

// Dispatcher routes a parsed command to its handler and delivers the reply.
// Every command type has an entry in the handler table; anything else falls
// through to the unknown handler, so a message always gets an answer.
type Dispatcher struct {
	store    *store.Store
	vender   vtu.Vender
	sender   whatsapp.Sender
	replies  *replies.Builder
	notifier *notify.Notifier
	referral config.ReferralConfig
	obs      *observability.Observability
	logger   logger.Logger
	handlers map[intent.CommandType]handlerFunc
}

func NewDispatcher(
	st *store.Store,
	vender vtu.Vender,
	sender whatsapp.Sender,
	builder *replies.Builder,
	notifier *notify.Notifier,
	referral config.ReferralConfig,
	obs *observability.Observability,
	log logger.Logger,
) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	d := &Dispatcher{
		store:    st,
		vender:   vender,
		sender:   sender,
		replies:  builder,
		notifier: notifier,
		referral: referral,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
	d.handlers = map[intent.CommandType]handlerFunc{
		intent.CommandGreeting:           d.handleGreeting,
		intent.CommandHelp:               d.handleHelp,
		intent.CommandBalanceCheck:       d.handleBalance,
		intent.CommandAirtimePurchase:    d.handleAirtime,
		intent.CommandDataPurchase:       d.handleData,
		intent.CommandElectricityPayment: d.handleElectricity,
		intent.CommandCableSubscription:  d.handleCable,
		intent.CommandTransactionHistory: d.handleHistory,
		intent.CommandReferralInfo:       d.handleReferral,
		intent.CommandUnknown:            d.handleUnknown,
	}
	return d
}

// Dispatch executes the handler for a parsed command and sends the rendered
// reply back to the user. Delivery failures are logged and counted, not
// propagated: the webhook must still acknowledge the message.
func (d *Dispatcher) Dispatch(ctx context.Context, user *models.User, cmd *intent.ParsedCommand) {
	start := time.Now()
	cmdType := string(cmd.CommandType)

	metrics.CommandsClassified.WithLabelValues(cmdType, string(cmd.Confidence)).Inc()

	handler, ok := d.handlers[cmd.CommandType]
	if !ok {
		handler = d.handleUnknown
	}

	// A validation error on the command short-circuits every transactional
	// handler into a targeted correction.
	reply := d.correctionOrHandle(ctx, handler, user, cmd)

	d.deliver(ctx, user.PhoneNumber, reply)

	elapsed := time.Since(start)
	metrics.MessageDuration.WithLabelValues(cmdType).Observe(elapsed.Seconds())
	if d.obs != nil {
		d.obs.RecordMessageProcessed(ctx, cmdType)
		d.obs.RecordMessageDuration(ctx, elapsed, cmdType)
	}
}

func (d *Dispatcher) correctionOrHandle(ctx context.Context, handler handlerFunc, user *models.User, cmd *intent.ParsedCommand) replies.Reply {
	if verr := cmd.ValidationError(); verr != nil {
		d.logger.Info("validation correction", map[string]interface{}{
			"commandType": cmd.CommandType,
			"code":        verr.Code,
			"phone":       user.PhoneNumber,
		})
		metrics.CommandsFailed.WithLabelValues(string(cmd.CommandType), string(verr.Code)).Inc()
		return d.replies.Correction(cmd.CommandType, verr)
	}
	return handler(ctx, user, cmd)
}

func (d *Dispatcher) deliver(ctx context.Context, to string, reply replies.Reply) {
	var err error
	if len(reply.Buttons) > 0 {
		buttons := make([]whatsapp.Button, 0, len(reply.Buttons))
		for _, b := range reply.Buttons {
			buttons = append(buttons, whatsapp.Button{ID: b.ID, Title: b.Title})
		}
		err = d.sender.SendButtons(ctx, to, reply.Text, buttons)
	} else {
		err = d.sender.SendText(ctx, to, reply.Text)
	}

	if err != nil {
		d.logger.Error("reply delivery failed", map[string]interface{}{
			"phone": to,
			"error": err,
		})
		metrics.RepliesSent.WithLabelValues("whatsapp", "error").Inc()
		return
	}
	metrics.RepliesSent.WithLabelValues("whatsapp", "success").Inc()
}

func (d *Dispatcher) failCounted(cmdType intent.CommandType, err error) replies.Reply {
	code := "INTERNAL"
	if serr, ok := err.(*errors.StandardError); ok {
		code = string(serr.Code)
	}
	metrics.CommandsFailed.WithLabelValues(string(cmdType), code).Inc()
	return d.replies.GenericError()
}

package channel

import (
	"context"
	"errors"
)

// teeChannel fans one message out to several channels.
type teeChannel struct {
	channels []Channel
}

// Tee returns a Channel that delivers each message to every given
// channel. Delivery is attempted on all of them even when one fails;
// the combined error is returned.
func Tee(channels ...Channel) Channel {
	return &teeChannel{channels: channels}
}

func (t *teeChannel) Send(ctx context.Context, msg OutgoingMessage) error {
	var errs []error
	for _, ch := range t.channels {
		if err := ch.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

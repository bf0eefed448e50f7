package notifier

import "log/slog"

type SLogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = SLogNotifier{}

func (s SLogNotifier) Notify(msg Message) {
	if msg.Failed {
		s.Logger.Warn(msg.Title, "reason", msg.Text)
		return
	}
	s.Logger.Info(msg.Title, "reason", msg.Text)
}

package outbox

import "github.com/sirupsen/logrus"

func logrusNop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func logFields(c Claimed, table string) logrus.Fields {
	return logrus.Fields{
		"table":           table,
		"topic":           c.Topic,
		"event_id":        c.EventID.String(),
		"organization_id": c.OrganizationID.String(),
		"sequence":        c.Sequence,
		"attempts":        c.Attempts,
	}
}

package exporter

import (
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	"github.com/smallbiznis/pqio/internal/pqds"
	settingdomain "github.com/smallbiznis/pqio/internal/setting/domain"
)

// tagList collects tags, skipping nil values.
type tagList []pqds.Tag

func (l *tagList) text(key string, v *string) {
	if v != nil {
		*l = append(*l, pqds.TextTag(key, *v))
	}
}

func (l *tagList) num(key string, v *float64) {
	if v != nil {
		*l = append(*l, pqds.NumericTag(key, *v))
	}
}

func (l *tagList) enum(key string, v *int) {
	if v != nil {
		*l = append(*l, pqds.EnumTag(key, *v))
	}
}

func deviceTags(m *meterdomain.Meter) []pqds.Tag {
	var l tagList
	l.text(pqds.KeyDeviceName, &m.DeviceName)
	l.text(pqds.KeyDeviceAlias, m.DeviceAlias)
	l.text(pqds.KeyDeviceLocation, m.DeviceLocation)
	l.text(pqds.KeyDeviceLocationAlias, m.DeviceLocationAlias)
	l.num(pqds.KeyLatitude, m.Latitude)
	l.num(pqds.KeyLongitude, m.Longitude)
	l.text(pqds.KeyAccountName, m.AccountName)
	l.text(pqds.KeyAccountNameAlias, m.AccountAlias)
	l.num(pqds.KeyDistanceToXFMR, m.DistanceToXFMR)
	l.enum(pqds.KeyConnectionType, m.ConnectionType)
	l.text(pqds.KeyDeviceOwner, m.Owner)
	return l
}

func assetTags(a *assetdomain.Asset) []pqds.Tag {
	var l tagList
	l.num(pqds.KeyNominalVoltage, a.NominalVoltage)
	l.num(pqds.KeyNominalFrequency, a.NominalFrequency)
	l.num(pqds.KeyUpstreamXFMR, a.UpstreamXFMR)
	l.num(pqds.KeyLineLength, a.LineLength)
	l.text(pqds.KeyAssetName, &a.AssetKey)
	return l
}

func eventTags(e *eventdomain.Event) []pqds.Tag {
	var l tagList
	if e.GUID != "" {
		l.text(pqds.KeyEventGUID, &e.GUID)
	}
	l.text(pqds.KeyEventID, &e.Name)
	l.enum(pqds.KeyEventType, e.EventType)
	l.enum(pqds.KeyEventFaultType, e.FaultType)
	l.num(pqds.KeyEventPeakCurrent, e.PeakCurrent)
	l.num(pqds.KeyEventPeakVoltage, e.PeakVoltage)
	l.num(pqds.KeyEventMaxVA, e.MaxVA)
	l.num(pqds.KeyEventMaxVB, e.MaxVB)
	l.num(pqds.KeyEventMaxVC, e.MaxVC)
	l.num(pqds.KeyEventMinVA, e.MinVA)
	l.num(pqds.KeyEventMinVB, e.MinVB)
	l.num(pqds.KeyEventMinVC, e.MinVC)
	l.num(pqds.KeyEventMaxIA, e.MaxIA)
	l.num(pqds.KeyEventMaxIB, e.MaxIB)
	l.num(pqds.KeyEventMaxIC, e.MaxIC)
	l.num(pqds.KeyPreEventCurrent, e.PreEventCurrent)
	l.num(pqds.KeyPreEventVoltage, e.PreEventVoltage)
	l.num(pqds.KeyEventDuration, e.Duration)
	l.num(pqds.KeyEventFaultI2T, e.FaultI2T)
	l.num(pqds.KeyDistanceToFault, e.DistanceToFault)
	l.enum(pqds.KeyEventCauseCode, e.FaultCause)
	return l
}

func sensitivityTags(code *int, note string) []pqds.Tag {
	var l tagList
	l.enum(pqds.KeyWaveFormSensitivityCode, code)
	if note != "" {
		l.text(pqds.KeyWaveFormSensitivityNote, &note)
	}
	return l
}

func customTags(fields []customfielddomain.CustomField) []pqds.Tag {
	out := make([]pqds.Tag, 0, len(fields))
	for _, f := range fields {
		out = append(out, pqds.Tag{
			Key:   f.Domain + "." + f.Key,
			Type:  pqds.TagTypeFromCode(f.Type),
			Value: f.Value,
		})
	}
	return out
}

func authorTags(c settingdomain.Contact) []pqds.Tag {
	var l tagList
	if c.Utility != "" {
		l.text(pqds.KeyUtility, &c.Utility)
	}
	if c.Email != "" {
		l.text(pqds.KeyContactEmail, &c.Email)
	}
	return l
}

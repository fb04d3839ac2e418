package pqds

// Group is the export inclusion group a known tag belongs to.
type Group int

const (
	GroupNone Group = iota
	GroupDevice
	GroupAsset
	GroupEvent
	GroupTiming
	GroupWaveform
	GroupAuthor
)

const (
	KeyDeviceName          = "DeviceName"
	KeyDeviceAlias         = "DeviceAlias"
	KeyDeviceLocation      = "DeviceLocation"
	KeyDeviceLocationAlias = "DeviceLocationAlias"
	KeyLatitude            = "Latitude"
	KeyLongitude           = "Longitude"
	KeyAccountName         = "AccountName"
	KeyAccountNameAlias    = "AccountNameAlias"
	KeyDistanceToXFMR      = "DeviceDistanceToXFMR"
	KeyConnectionType      = "DeviceConnectionTypeCode"
	KeyDeviceOwner         = "DeviceOwner"

	KeyAssetName        = "AssetName"
	KeyNominalVoltage   = "NominalVoltage-LG"
	KeyNominalFrequency = "NominalFrequency"
	KeyUpstreamXFMR     = "UpstreamXFMR-kVA"
	KeyLineLength       = "LineLength"

	KeyEventGUID        = "EventGUID"
	KeyEventID          = "EventID"
	KeyEventType        = "EventTypeCode"
	KeyEventFaultType   = "EventFaultTypeCode"
	KeyEventPeakCurrent = "EventPeakCurrent"
	KeyEventPeakVoltage = "EventPeakVoltage"
	KeyEventMaxVA       = "EventMaxVA"
	KeyEventMaxVB       = "EventMaxVB"
	KeyEventMaxVC       = "EventMaxVC"
	KeyEventMinVA       = "EventMinVA"
	KeyEventMinVB       = "EventMinVB"
	KeyEventMinVC       = "EventMinVC"
	KeyEventMaxIA       = "EventMaxIA"
	KeyEventMaxIB       = "EventMaxIB"
	KeyEventMaxIC       = "EventMaxIC"
	KeyPreEventCurrent  = "EventPreEventCurrent"
	KeyPreEventVoltage  = "EventPreEventVoltage"
	KeyEventDuration    = "EventDuration"
	KeyEventFaultI2T    = "EventFaultI2T"
	KeyDistanceToFault  = "DistanceToFault"
	KeyEventCauseCode   = "EventCauseCode"

	KeyEventYear       = "EventYear"
	KeyEventMonth      = "EventMonth"
	KeyEventDay        = "EventDay"
	KeyEventHour       = "EventHour"
	KeyEventMinute     = "EventMinute"
	KeyEventSecond     = "EventSecond"
	KeyEventNanoSecond = "EventNanoSecond"
	KeyEventDate       = "EventDate"
	KeyEventTime       = "EventTime"

	KeyWaveFormDataType        = "WaveFormDataType"
	KeyWaveFormSensitivityCode = "WaveFormSensitivityCode"
	KeyWaveFormSensitivityNote = "WaveFormSensitivityNote"

	KeyUtility      = "Utility"
	KeyContactEmail = "ContactEmail"

	// DataHeader starts the sample section.
	DataHeader = "waveform-data"
)

// Spec describes a known tag.
type Spec struct {
	Key   string
	Type  TagType
	Group Group
}

var knownTags = []Spec{
	{KeyDeviceName, TagText, GroupDevice},
	{KeyDeviceAlias, TagText, GroupDevice},
	{KeyDeviceLocation, TagText, GroupDevice},
	{KeyDeviceLocationAlias, TagText, GroupDevice},
	{KeyLatitude, TagNumeric, GroupDevice},
	{KeyLongitude, TagNumeric, GroupDevice},
	{KeyAccountName, TagText, GroupDevice},
	{KeyAccountNameAlias, TagText, GroupDevice},
	{KeyDistanceToXFMR, TagNumeric, GroupDevice},
	{KeyConnectionType, TagEnum, GroupDevice},
	{KeyDeviceOwner, TagText, GroupDevice},

	{KeyAssetName, TagText, GroupAsset},
	{KeyNominalVoltage, TagNumeric, GroupAsset},
	{KeyNominalFrequency, TagNumeric, GroupAsset},
	{KeyUpstreamXFMR, TagNumeric, GroupAsset},
	{KeyLineLength, TagNumeric, GroupAsset},

	{KeyEventGUID, TagText, GroupEvent},
	{KeyEventID, TagText, GroupEvent},
	{KeyEventType, TagEnum, GroupEvent},
	{KeyEventFaultType, TagEnum, GroupEvent},
	{KeyEventPeakCurrent, TagNumeric, GroupEvent},
	{KeyEventPeakVoltage, TagNumeric, GroupEvent},
	{KeyEventMaxVA, TagNumeric, GroupEvent},
	{KeyEventMaxVB, TagNumeric, GroupEvent},
	{KeyEventMaxVC, TagNumeric, GroupEvent},
	{KeyEventMinVA, TagNumeric, GroupEvent},
	{KeyEventMinVB, TagNumeric, GroupEvent},
	{KeyEventMinVC, TagNumeric, GroupEvent},
	{KeyEventMaxIA, TagNumeric, GroupEvent},
	{KeyEventMaxIB, TagNumeric, GroupEvent},
	{KeyEventMaxIC, TagNumeric, GroupEvent},
	{KeyPreEventCurrent, TagNumeric, GroupEvent},
	{KeyPreEventVoltage, TagNumeric, GroupEvent},
	{KeyEventDuration, TagNumeric, GroupEvent},
	{KeyEventFaultI2T, TagNumeric, GroupEvent},
	{KeyDistanceToFault, TagNumeric, GroupEvent},
	{KeyEventCauseCode, TagEnum, GroupEvent},

	{KeyEventYear, TagNumeric, GroupTiming},
	{KeyEventMonth, TagNumeric, GroupTiming},
	{KeyEventDay, TagNumeric, GroupTiming},
	{KeyEventHour, TagNumeric, GroupTiming},
	{KeyEventMinute, TagNumeric, GroupTiming},
	{KeyEventSecond, TagNumeric, GroupTiming},
	{KeyEventNanoSecond, TagNumeric, GroupTiming},
	{KeyEventDate, TagText, GroupTiming},
	{KeyEventTime, TagText, GroupTiming},

	{KeyWaveFormDataType, TagEnum, GroupWaveform},
	{KeyWaveFormSensitivityCode, TagEnum, GroupWaveform},
	{KeyWaveFormSensitivityNote, TagText, GroupWaveform},

	{KeyUtility, TagText, GroupAuthor},
	{KeyContactEmail, TagText, GroupAuthor},
}

var knownByKey = func() map[string]Spec {
	m := make(map[string]Spec, len(knownTags))
	for _, s := range knownTags {
		m[NormalizeKey(s.Key)] = s
	}
	return m
}()

// Lookup returns the registry entry for key, ignoring case.
func Lookup(key string) (Spec, bool) {
	s, ok := knownByKey[NormalizeKey(key)]
	return s, ok
}

// Measurement keys of the recognized data channels.
const (
	MeasureVA    = "va"
	MeasureVB    = "vb"
	MeasureVC    = "vc"
	MeasureIA    = "ia"
	MeasureIB    = "ib"
	MeasureIC    = "ic"
	MeasureF     = "f"
	MeasureOther = "other"
)

// Measurements is the fixed set of recognized channel keys in file order.
var Measurements = []string{MeasureVA, MeasureVB, MeasureVC, MeasureIA, MeasureIB, MeasureIC, MeasureF}

// IsMeasurement reports whether key is a recognized channel key.
func IsMeasurement(key string) bool {
	key = NormalizeKey(key)
	for _, m := range Measurements {
		if m == key {
			return true
		}
	}
	return false
}

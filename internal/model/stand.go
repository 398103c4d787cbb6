package model

// Stand represents a candle stand record in the store.
type Stand struct {
	SessionID    string  `json:"stid" bson:"stid"`
	SerialNumber string  `json:"serialnumber" bson:"serialnumber"`
	Address      string  `json:"address" bson:"address"`
	Balance      int64   `json:"balance" bson:"balance"`
	Currency     int     `json:"currency" bson:"currency"`
	IsActive     bool    `json:"isactive" bson:"isactive"`
	Latitude     float64 `json:"latitude" bson:"latitude"`
	Longitude    float64 `json:"longitude" bson:"longitude"`
	Message      string  `json:"message" bson:"message"`
	Price1       int64   `json:"price1" bson:"price1"`
	Price2       int64   `json:"price2" bson:"price2"`
	OwnerUID     string  `json:"uid" bson:"uid"`
	CandlesOn    int     `json:"candlesOn" bson:"candlesOn"`
	TotalCandles int     `json:"totalcandles" bson:"totalcandles"`
}

// StandDefaults holds the field values given to a newly registered stand.
type StandDefaults struct {
	Address   string  `yaml:"address"`
	Balance   int64   `yaml:"balance"`
	Currency  int     `yaml:"currency"`
	IsActive  bool    `yaml:"isactive"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Message   string  `yaml:"message"`
	Price1    int64   `yaml:"price1"`
	Price2    int64   `yaml:"price2"`
	OwnerUID  string  `yaml:"uid"`
}

// DefaultStandDefaults returns the built-in defaults for new stands.
func DefaultStandDefaults() StandDefaults {
	return StandDefaults{
		Address:  "DefaultAddress",
		Currency: 1,
		IsActive: true,
		Message:  "DefaultMessage",
		OwnerUID: "Unassigned",
	}
}

// NewStand builds a stand record from defaults and the reported device data.
func (d StandDefaults) NewStand(sessionID, serialNumber string, candlesOn, totalCandles int) *Stand {
	return &Stand{
		SessionID:    sessionID,
		SerialNumber: serialNumber,
		Address:      d.Address,
		Balance:      d.Balance,
		Currency:     d.Currency,
		IsActive:     d.IsActive,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		Message:      d.Message,
		Price1:       d.Price1,
		Price2:       d.Price2,
		OwnerUID:     d.OwnerUID,
		CandlesOn:    candlesOn,
		TotalCandles: totalCandles,
	}
}

// StandUpdate is a partial stand update. Nil fields are left untouched.
type StandUpdate struct {
	IsActive     *bool
	CandlesOn    *int
	TotalCandles *int
	Balance      *int64
	Message      *string
}

// IsEmpty reports whether the update changes nothing.
func (u StandUpdate) IsEmpty() bool {
	return u.IsActive == nil && u.CandlesOn == nil && u.TotalCandles == nil &&
		u.Balance == nil && u.Message == nil
}

// Apply copies the set fields onto s.
func (u StandUpdate) Apply(s *Stand) {
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
	if u.CandlesOn != nil {
		s.CandlesOn = *u.CandlesOn
	}
	if u.TotalCandles != nil {
		s.TotalCandles = *u.TotalCandles
	}
	if u.Balance != nil {
		s.Balance = *u.Balance
	}
	if u.Message != nil {
		s.Message = *u.Message
	}
}

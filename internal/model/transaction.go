package model

import "time"

// OnSiteContent is the content recorded for payments settled at the stand.
const OnSiteContent = "no message"

// Transaction represents a payment made at or for a stand.
type Transaction struct {
	ID        string    `json:"trzid" bson:"trzid"`
	StandID   string    `json:"stid" bson:"stid"`
	Amount    int64     `json:"amount" bson:"amount"`
	Candles   int       `json:"candles" bson:"candles"`
	Content   string    `json:"content" bson:"content"`
	Confirmed bool      `json:"isconfirmed" bson:"isconfirmed"`
	Online    bool      `json:"isonline" bson:"isonline"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// IsPendingOnline reports whether the transaction is an online payment
// still awaiting confirmation by its stand.
func (t *Transaction) IsPendingOnline() bool {
	return t.Online && !t.Confirmed
}

// TransactionUpdate is a partial transaction update. Nil fields are left untouched.
type TransactionUpdate struct {
	Confirmed *bool
	Content   *string
}

// IsEmpty reports whether the update changes nothing.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Confirmed == nil && u.Content == nil
}

// Apply copies the set fields onto t.
func (u TransactionUpdate) Apply(t *Transaction) {
	if u.Confirmed != nil {
		t.Confirmed = *u.Confirmed
	}
	if u.Content != nil {
		t.Content = *u.Content
	}
}

package library

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

type Account = string

type Sha256 = string

type RelayURL = string

type ConversationID = string

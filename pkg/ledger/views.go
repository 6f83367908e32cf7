package ledger

// DefaultTransferCode is the classification the ERP records stock and bank
// transfers with.
const DefaultTransferCode = "TRF"

// DefaultClassifications returns the sign exceptions each view uses when
// the configuration file does not override them.
func DefaultClassifications() map[Kind]Classifications {
	return map[Kind]Classifications{
		KindCounterparty: {},
		KindBankAccount:  {DefaultTransferCode: SignInverted},
		KindStock:        {DefaultTransferCode: SignInverted},
	}
}

// NewCounterpartyView computes customer and supplier balances.
// The entity is the partition-local counterparty reference.
func NewCounterpartyView(reader LineReader, signs Classifications) *Aggregator {
	return NewAggregator(KindCounterparty, reader, signs)
}

// NewBankAccountView computes bank account balances. The scope is the bank
// account id.
func NewBankAccountView(reader LineReader, signs Classifications) *Aggregator {
	return NewAggregator(KindBankAccount, reader, signs)
}

// NewStockView computes stock quantities. The entity is the item code and
// the scope is the warehouse.
func NewStockView(reader LineReader, signs Classifications) *Aggregator {
	return NewAggregator(KindStock, reader, signs)
}

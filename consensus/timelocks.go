package consensus

// CoinRecord is the chain's view of an unspent coin: where and when it
// was confirmed. Only the fields the time-lock checks need.
type CoinRecord struct {
	ConfirmedBlockIndex uint32
	Timestamp           uint64
}

// CheckTimeLocks validates the aggregated time locks of a parsed bundle
// against the previous transaction block's height and timestamp, and
// each spent coin's confirmation record. Coins missing from removals
// are skipped: their relative locks are checked when they appear.
// The first violated lock is returned; nil means every lock holds.
func CheckTimeLocks(
	removals map[[32]byte]CoinRecord,
	conds *OwnedSpendBundleConditions,
	prevTransactionBlockHeight uint32,
	timestamp uint64,
) error {
	if prevTransactionBlockHeight < conds.HeightAbsolute {
		return valErr(0, ERR_ASSERT_HEIGHT_ABSOLUTE_FAILED)
	}
	if timestamp < conds.SecondsAbsolute {
		return valErr(0, ERR_ASSERT_SECONDS_ABSOLUTE_FAILED)
	}
	if conds.BeforeHeightAbsolute != nil && prevTransactionBlockHeight >= *conds.BeforeHeightAbsolute {
		return valErr(0, ERR_ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED)
	}
	if conds.BeforeSecondsAbsolute != nil && timestamp >= *conds.BeforeSecondsAbsolute {
		return valErr(0, ERR_ASSERT_BEFORE_SECONDS_ABSOLUTE_FAILED)
	}

	for i := range conds.Spends {
		spend := &conds.Spends[i]
		unspent, ok := removals[spend.CoinID]
		if !ok {
			continue
		}
		if spend.BirthHeight != nil && *spend.BirthHeight != unspent.ConfirmedBlockIndex {
			return valErr(0, ERR_ASSERT_MY_BIRTH_HEIGHT_FAILED)
		}
		if spend.BirthSeconds != nil && *spend.BirthSeconds != unspent.Timestamp {
			return valErr(0, ERR_ASSERT_MY_BIRTH_SECONDS_FAILED)
		}
		if spend.HeightRelative != nil &&
			uint64(prevTransactionBlockHeight) < uint64(unspent.ConfirmedBlockIndex)+uint64(*spend.HeightRelative) {
			return valErr(0, ERR_ASSERT_HEIGHT_RELATIVE_FAILED)
		}
		if spend.SecondsRelative != nil && timestamp < unspent.Timestamp+*spend.SecondsRelative {
			return valErr(0, ERR_ASSERT_SECONDS_RELATIVE_FAILED)
		}
		if spend.BeforeHeightRelative != nil &&
			uint64(prevTransactionBlockHeight) >= uint64(unspent.ConfirmedBlockIndex)+uint64(*spend.BeforeHeightRelative) {
			return valErr(0, ERR_ASSERT_BEFORE_HEIGHT_RELATIVE_FAILED)
		}
		if spend.BeforeSecondsRelative != nil && timestamp >= unspent.Timestamp+*spend.BeforeSecondsRelative {
			return valErr(0, ERR_ASSERT_BEFORE_SECONDS_RELATIVE_FAILED)
		}
	}
	return nil
}

package consensus

import (
	"testing"
)

func u32p(v uint32) *uint32 { return &v }
func u64p(v uint64) *uint64 { return &v }

func TestCheckTimeLocks(t *testing.T) {
	coinID := h32(0xc1)
	removals := map[[32]byte]CoinRecord{
		coinID: {ConfirmedBlockIndex: 100, Timestamp: 10_000},
	}

	base := func() *OwnedSpendBundleConditions {
		return &OwnedSpendBundleConditions{
			HeightAbsolute:  150,
			SecondsAbsolute: 20_000,
			Spends: []OwnedSpendConditions{{
				CoinID:          coinID,
				HeightRelative:  u32p(10),
				SecondsRelative: u64p(5_000),
			}},
		}
	}

	if err := CheckTimeLocks(removals, base(), 200, 30_000); err != nil {
		t.Fatalf("locks should hold: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*OwnedSpendBundleConditions)
		height uint32
		time   uint64
		code   ErrorCode
	}{
		{"height_absolute", nil, 149, 30_000, ERR_ASSERT_HEIGHT_ABSOLUTE_FAILED},
		{"seconds_absolute", nil, 200, 19_999, ERR_ASSERT_SECONDS_ABSOLUTE_FAILED},
		{
			"before_height_absolute",
			func(c *OwnedSpendBundleConditions) { c.BeforeHeightAbsolute = u32p(180) },
			200, 30_000, ERR_ASSERT_BEFORE_HEIGHT_ABSOLUTE_FAILED,
		},
		{
			"before_seconds_absolute",
			func(c *OwnedSpendBundleConditions) { c.BeforeSecondsAbsolute = u64p(25_000) },
			200, 30_000, ERR_ASSERT_BEFORE_SECONDS_ABSOLUTE_FAILED,
		},
		{
			"height_relative",
			func(c *OwnedSpendBundleConditions) { c.Spends[0].HeightRelative = u32p(101) },
			200, 30_000, ERR_ASSERT_HEIGHT_RELATIVE_FAILED,
		},
		{
			"seconds_relative",
			func(c *OwnedSpendBundleConditions) { c.Spends[0].SecondsRelative = u64p(20_001) },
			200, 30_000, ERR_ASSERT_SECONDS_RELATIVE_FAILED,
		},
		{
			"before_height_relative",
			func(c *OwnedSpendBundleConditions) { c.Spends[0].BeforeHeightRelative = u32p(100) },
			200, 30_000, ERR_ASSERT_BEFORE_HEIGHT_RELATIVE_FAILED,
		},
		{
			"birth_height",
			func(c *OwnedSpendBundleConditions) { c.Spends[0].BirthHeight = u32p(99) },
			200, 30_000, ERR_ASSERT_MY_BIRTH_HEIGHT_FAILED,
		},
		{
			"birth_seconds",
			func(c *OwnedSpendBundleConditions) { c.Spends[0].BirthSeconds = u64p(10_001) },
			200, 30_000, ERR_ASSERT_MY_BIRTH_SECONDS_FAILED,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conds := base()
			if tc.mutate != nil {
				tc.mutate(conds)
			}
			err := CheckTimeLocks(removals, conds, tc.height, tc.time)
			requireErrCode(t, err, tc.code)
		})
	}

	// unknown removals are skipped
	conds := base()
	conds.Spends[0].CoinID = h32(0xdd)
	conds.Spends[0].HeightRelative = u32p(1 << 30)
	if err := CheckTimeLocks(removals, conds, 200, 30_000); err != nil {
		t.Fatalf("missing removal should be skipped: %v", err)
	}
}

// Copyright 2025 Marinade Finance
// SPDX-License-Identifier: Apache-2.0

package marinade

import (
	"bytes"
	"crypto/sha256"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

const discriminatorSize = 8

// ErrDiscriminatorMismatch is returned when account data does not start with the
// expected account discriminator.
var ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")

// Fee is expressed in basis points.
type Fee struct {
	BasisPoints uint32
}

// FeeCents is expressed in 1/100 of a basis point, 1_000_000 being 100%.
type FeeCents struct {
	BpCents uint32
}

type List struct {
	Account     solana.PublicKey
	ItemSize    uint32
	Count       uint32
	NewAccount  solana.PublicKey
	CopiedCount uint32
}

// Capacity returns how many items fit into an account of dataLen bytes.
func (l List) Capacity(dataLen int) (uint32, error) {
	if l.ItemSize == 0 {
		return 0, errors.New("list item size is zero")
	}
	if dataLen < discriminatorSize {
		return 0, errors.Errorf("list account too small: %d bytes", dataLen)
	}
	return uint32((dataLen - discriminatorSize) / int(l.ItemSize)), nil
}

// ItemAt returns the raw bytes of item index within the list account data.
func (l List) ItemAt(data []byte, index uint32) ([]byte, error) {
	if index >= l.Count {
		return nil, errors.Errorf("list index %d out of bounds (%d)", index, l.Count)
	}
	start := discriminatorSize + int(index)*int(l.ItemSize)
	end := start + int(l.ItemSize)
	if end > len(data) {
		return nil, errors.Errorf("list account %s truncated at item %d", l.Account, index)
	}
	return data[start:end], nil
}

type StakeSystem struct {
	StakeList                 List
	DelayedUnstakeCoolingDown uint64
	StakeDepositBumpSeed      uint8
	StakeWithdrawBumpSeed     uint8
	SlotsForStakeDelta        uint64
	LastStakeDeltaEpoch       uint64
	MinStake                  uint64
	ExtraStakeDeltaRuns       uint32
}

type ValidatorSystem struct {
	ValidatorList           List
	ManagerAuthority        solana.PublicKey
	TotalValidatorScore     uint32
	TotalActiveBalance      uint64
	AutoAddValidatorEnabled uint8
}

type LiqPool struct {
	LpMint                   solana.PublicKey
	LpMintAuthorityBumpSeed  uint8
	SolLegBumpSeed           uint8
	MsolLegAuthorityBumpSeed uint8
	MsolLeg                  solana.PublicKey
	LpLiquidityTarget        uint64
	LpMaxFee                 Fee
	LpMinFee                 Fee
	TreasuryCut              Fee
	LpSupply                 uint64
	LentFromSolLeg           uint64
	LiquiditySolCap          uint64
}

// State is the Marinade instance account.
type State struct {
	MsolMint                    solana.PublicKey
	AdminAuthority              solana.PublicKey
	OperationalSolAccount       solana.PublicKey
	TreasuryMsolAccount         solana.PublicKey
	ReserveBumpSeed             uint8
	MsolMintAuthorityBumpSeed   uint8
	RentExemptForTokenAcc       uint64
	RewardFee                   Fee
	StakeSystem                 StakeSystem
	ValidatorSystem             ValidatorSystem
	LiqPool                     LiqPool
	AvailableReserveBalance     uint64
	MsolSupply                  uint64
	MsolPrice                   uint64
	CirculatingTicketCount      uint64
	CirculatingTicketBalance    uint64
	LentFromReserve             uint64
	MinDeposit                  uint64
	MinWithdraw                 uint64
	StakingSolCap               uint64
	EmergencyCoolingDown        uint64
	PauseAuthority              solana.PublicKey
	Paused                      bool
	DelayedUnstakeFee           FeeCents
	WithdrawStakeAccountFee     FeeCents
	WithdrawStakeAccountEnabled bool
	LastStakeMoveEpoch          uint64
	StakeMoved                  uint64
	MaxStakeMovedPerEpoch       Fee
}

type ValidatorRecord struct {
	ValidatorAccount    solana.PublicKey
	ActiveBalance       uint64
	Score               uint32
	LastStakeDeltaEpoch uint64
	DuplicationFlagBump uint8
}

type StakeRecord struct {
	StakeAccount                solana.PublicKey
	LastUpdateDelegatedLamports uint64
	LastUpdateEpoch             uint64
	IsEmergencyUnstaking        uint8
}

// TicketAccountData is a delayed unstake ticket created by order_unstake.
type TicketAccountData struct {
	StateAddress   solana.PublicKey
	Beneficiary    solana.PublicKey
	LamportsAmount uint64
	CreatedEpoch   uint64
}

var (
	stateDiscriminator  = accountDiscriminator("State")
	ticketDiscriminator = accountDiscriminator("TicketAccountData")
)

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:discriminatorSize]
}

func instructionDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:discriminatorSize]
}

// DecodeState parses the data of a Marinade state account.
func DecodeState(data []byte) (*State, error) {
	var state State
	if err := decodeAccount(data, stateDiscriminator, &state); err != nil {
		return nil, errors.Wrap(err, "failed to decode marinade state")
	}
	return &state, nil
}

// EncodeState serializes state with its account discriminator.
func EncodeState(state *State) ([]byte, error) {
	return encodeAccount(stateDiscriminator, state)
}

func DecodeTicket(data []byte) (*TicketAccountData, error) {
	var ticket TicketAccountData
	if err := decodeAccount(data, ticketDiscriminator, &ticket); err != nil {
		return nil, errors.Wrap(err, "failed to decode ticket account")
	}
	return &ticket, nil
}

func decodeAccount(data, discriminator []byte, v interface{}) error {
	if len(data) < discriminatorSize {
		return errors.Errorf("account data too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:discriminatorSize], discriminator) {
		return ErrDiscriminatorMismatch
	}
	return errors.WithStack(bin.NewBorshDecoder(data[discriminatorSize:]).Decode(v))
}

func encodeAccount(discriminator []byte, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(discriminator)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// DecodeValidatorRecord parses item index of the validator list account data.
func (s *State) DecodeValidatorRecord(data []byte, index uint32) (ValidatorRecord, error) {
	var record ValidatorRecord
	raw, err := s.ValidatorSystem.ValidatorList.ItemAt(data, index)
	if err != nil {
		return record, err
	}
	err = bin.NewBorshDecoder(raw).Decode(&record)
	return record, errors.Wrapf(err, "failed to decode validator record %d", index)
}

// DecodeStakeRecord parses item index of the stake list account data.
func (s *State) DecodeStakeRecord(data []byte, index uint32) (StakeRecord, error) {
	var record StakeRecord
	raw, err := s.StakeSystem.StakeList.ItemAt(data, index)
	if err != nil {
		return record, err
	}
	err = bin.NewBorshDecoder(raw).Decode(&record)
	return record, errors.Wrapf(err, "failed to decode stake record %d", index)
}

func (s *State) ValidatorListCapacity(dataLen int) (uint32, error) {
	return s.ValidatorSystem.ValidatorList.Capacity(dataLen)
}

func (s *State) StakeListCapacity(dataLen int) (uint32, error) {
	return s.StakeSystem.StakeList.Capacity(dataLen)
}

// TotalCoolingDown is the stake being deactivated, either delayed unstake or emergency.
func (s *State) TotalCoolingDown() uint64 {
	return s.StakeSystem.DelayedUnstakeCoolingDown + s.EmergencyCoolingDown
}

// TotalLamportsUnderControl is active stake plus cooling down stake plus the reserve.
func (s *State) TotalLamportsUnderControl() uint64 {
	return s.ValidatorSystem.TotalActiveBalance + s.TotalCoolingDown() + s.AvailableReserveBalance
}

// MsolPriceDenominator is the fixed point denominator of State.MsolPrice.
const MsolPriceDenominator = 1 << 32

// MsolPriceFloat returns the mSOL price in SOL.
func (s *State) MsolPriceFloat() float64 {
	return float64(s.MsolPrice) / MsolPriceDenominator
}

func (f Fee) String() string {
	return formatBasisPoints(uint64(f.BasisPoints), 100)
}

func (f FeeCents) String() string {
	return formatBasisPoints(uint64(f.BpCents), 10_000)
}

// formatBasisPoints renders value/denominator percent.
func formatBasisPoints(value, denominator uint64) string {
	return strconv.FormatFloat(float64(value)/float64(denominator), 'f', -1, 64) + "%"
}

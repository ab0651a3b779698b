package voting

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/toonvote/toonvote/internal/domain"
)

// --- Fakes ---

type fakeProposalRepo struct {
	mu        sync.Mutex
	nextID    int64
	proposals map[int64]domain.Proposal
	getErr    error
	deleteErr error
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{nextID: 1, proposals: make(map[int64]domain.Proposal)}
}

func (f *fakeProposalRepo) add(p domain.Proposal) domain.Proposal {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.nextID
	f.nextID++
	f.proposals[p.ID] = p
	return p
}

func (f *fakeProposalRepo) Create(ctx context.Context, creatorID uuid.UUID, targetID, candidateID int64) (*domain.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.proposals {
		if p.TargetWebtoonID == targetID && p.CandidateWebtoonID == candidateID {
			return nil, domain.ErrDuplicateProposal
		}
	}
	p := domain.Proposal{
		ID:                 f.nextID,
		TargetWebtoonID:    targetID,
		CandidateWebtoonID: candidateID,
		CreatorID:          creatorID,
	}
	f.nextID++
	f.proposals[p.ID] = p
	return &p, nil
}

func (f *fakeProposalRepo) GetByID(ctx context.Context, proposalID int64) (*domain.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	return &p, nil
}

func (f *fakeProposalRepo) ExistsByPair(ctx context.Context, targetID, candidateID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.proposals {
		if p.TargetWebtoonID == targetID && p.CandidateWebtoonID == candidateID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProposalRepo) Delete(ctx context.Context, proposalID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.proposals[proposalID]; !ok {
		return domain.ErrProposalNotFound
	}
	delete(f.proposals, proposalID)
	return nil
}

func (f *fakeProposalRepo) ListByTarget(ctx context.Context, targetID int64, page, size int) ([]domain.Proposal, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.Proposal
	for _, p := range f.proposals {
		if p.TargetWebtoonID == targetID {
			matched = append(matched, p)
		}
	}
	sortProposals(matched)
	total := int64(len(matched))
	start := page * size
	if start > len(matched) {
		return nil, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeProposalRepo) ListTop(ctx context.Context, size int) ([]domain.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]domain.Proposal, 0, len(f.proposals))
	for _, p := range f.proposals {
		all = append(all, p)
	}
	sortProposals(all)
	if len(all) > size {
		all = all[:size]
	}
	return all, nil
}

func (f *fakeProposalRepo) UpdateResult(ctx context.Context, proposalID, result int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	p.Result = result
	f.proposals[proposalID] = p
	return nil
}

func sortProposals(ps []domain.Proposal) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Result != ps[j].Result {
			return ps[i].Result > ps[j].Result
		}
		return ps[i].ID > ps[j].ID
	})
}

// fakeLedger keeps votes in memory and mimics transactional behavior: tx
// mutations are staged and only applied when the callback returns nil.
type fakeLedger struct {
	mu        sync.Mutex
	nextID    int64
	votes     map[string]domain.Vote
	results   map[int64]int64
	insertErr error
	resultErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{nextID: 1, votes: make(map[string]domain.Vote), results: make(map[int64]int64)}
}

func voteKey(userID uuid.UUID, proposalID int64) string {
	return fmt.Sprintf("%s:%d", userID, proposalID)
}

func (f *fakeLedger) seed(userID uuid.UUID, proposalID int64, voteType domain.VoteType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes[voteKey(userID, proposalID)] = domain.Vote{
		ID: f.nextID, UserID: userID, ProposalID: proposalID, Type: voteType,
	}
	f.nextID++
}

func (f *fakeLedger) InTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	f.mu.Lock()
	staged := &fakeLedgerTx{ledger: f, votes: make(map[string]domain.Vote, len(f.votes))}
	for k, v := range f.votes {
		staged.votes[k] = v
	}
	staged.results = make(map[int64]int64, len(f.results))
	for k, v := range f.results {
		staged.results[k] = v
	}
	f.mu.Unlock()

	if err := fn(staged); err != nil {
		return err
	}

	f.mu.Lock()
	f.votes = staged.votes
	f.results = staged.results
	f.mu.Unlock()
	return nil
}

func (f *fakeLedger) GetVote(ctx context.Context, userID uuid.UUID, proposalID int64) (*domain.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.votes[voteKey(userID, proposalID)]
	if !ok {
		return nil, domain.ErrVoteNotFound
	}
	return &v, nil
}

func (f *fakeLedger) ListAllVotes(ctx context.Context) ([]domain.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	votes := make([]domain.Vote, 0, len(f.votes))
	for _, v := range f.votes {
		votes = append(votes, v)
	}
	return votes, nil
}

func (f *fakeLedger) hasVote(userID uuid.UUID, proposalID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.votes[voteKey(userID, proposalID)]
	return ok
}

func (f *fakeLedger) result(proposalID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[proposalID]
}

type fakeLedgerTx struct {
	ledger  *fakeLedger
	votes   map[string]domain.Vote
	results map[int64]int64
}

func (t *fakeLedgerTx) InsertVote(ctx context.Context, userID uuid.UUID, proposalID int64, voteType domain.VoteType) (int64, error) {
	if t.ledger.insertErr != nil {
		return 0, t.ledger.insertErr
	}
	key := voteKey(userID, proposalID)
	if _, ok := t.votes[key]; ok {
		return 0, domain.ErrDuplicateVote
	}
	id := t.ledger.nextID
	t.ledger.nextID++
	t.votes[key] = domain.Vote{ID: id, UserID: userID, ProposalID: proposalID, Type: voteType}
	return id, nil
}

func (t *fakeLedgerTx) DeleteVote(ctx context.Context, userID uuid.UUID, proposalID int64) (domain.VoteType, error) {
	key := voteKey(userID, proposalID)
	v, ok := t.votes[key]
	if !ok {
		return "", domain.ErrVoteNotFound
	}
	delete(t.votes, key)
	return v.Type, nil
}

func (t *fakeLedgerTx) SetProposalResult(ctx context.Context, proposalID, result int64) error {
	if t.ledger.resultErr != nil {
		return t.ledger.resultErr
	}
	t.results[proposalID] = result
	return nil
}

// fakeCache is an in-memory stand-in for the Redis aggregate store.
type fakeCache struct {
	mu        sync.Mutex
	counts    map[int64]map[domain.VoteType]int64
	flags     map[string]bool
	incrErr   error
	getErr    error
	markErr   error
	hasErr    error
	unmarkErr error
	clearErr  error
	cleared   []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		counts: make(map[int64]map[domain.VoteType]int64),
		flags:  make(map[string]bool),
	}
}

func (f *fakeCache) IncrCount(ctx context.Context, proposalID int64, voteType domain.VoteType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return f.incrErr
	}
	f.bump(proposalID, voteType, 1)
	return nil
}

func (f *fakeCache) DecrCount(ctx context.Context, proposalID int64, voteType domain.VoteType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bump(proposalID, voteType, -1)
	return nil
}

func (f *fakeCache) bump(proposalID int64, voteType domain.VoteType, delta int64) {
	if f.counts[proposalID] == nil {
		f.counts[proposalID] = make(map[domain.VoteType]int64)
	}
	f.counts[proposalID][voteType] += delta
}

func (f *fakeCache) GetCount(ctx context.Context, proposalID int64, voteType domain.VoteType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, f.getErr
	}
	return f.counts[proposalID][voteType], nil
}

func (f *fakeCache) SetCount(ctx context.Context, proposalID int64, voteType domain.VoteType, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[proposalID] == nil {
		f.counts[proposalID] = make(map[domain.VoteType]int64)
	}
	f.counts[proposalID][voteType] = value
	return nil
}

func (f *fakeCache) MarkVoted(ctx context.Context, userID uuid.UUID, proposalID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.flags[voteKey(userID, proposalID)] = true
	return nil
}

func (f *fakeCache) HasVoted(ctx context.Context, userID uuid.UUID, proposalID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasErr != nil {
		return false, f.hasErr
	}
	return f.flags[voteKey(userID, proposalID)], nil
}

func (f *fakeCache) UnmarkVoted(ctx context.Context, userID uuid.UUID, proposalID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unmarkErr != nil {
		return f.unmarkErr
	}
	delete(f.flags, voteKey(userID, proposalID))
	return nil
}

func (f *fakeCache) ClearProposal(ctx context.Context, proposalID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.counts, proposalID)
	f.cleared = append(f.cleared, proposalID)
	return nil
}

func (f *fakeCache) voted(userID uuid.UUID, proposalID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[voteKey(userID, proposalID)]
}

func (f *fakeCache) count(proposalID int64, voteType domain.VoteType) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[proposalID][voteType]
}

// recordingSink collects outcomes synchronously.
type recordingSink struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
}

func (s *recordingSink) Dispatch(outcome domain.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
}

func (s *recordingSink) all() []domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.Outcome, len(s.outcomes))
	copy(cp, s.outcomes)
	return cp
}

// countingTrigger counts broadcast signals.
type countingTrigger struct {
	mu    sync.Mutex
	count int
}

func (c *countingTrigger) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *countingTrigger) signals() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

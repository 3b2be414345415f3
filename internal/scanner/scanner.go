package scanner

import (
	"fmt"

	"github.com/rybkr/sizehist/internal/gitobj"
	"github.com/rybkr/sizehist/internal/pathintern"
	"github.com/rybkr/sizehist/internal/progress"
	"github.com/rybkr/sizehist/internal/scanstore"
	"github.com/rybkr/sizehist/internal/sizetree"
)

// GitScanner drives one end-to-end scan: resolve HEAD, diff its reachable
// commits against what the store has already processed, walk only the new
// ones, and apply the result atomically.
type GitScanner struct {
	repoPath string
	store    scanstore.Store
	reporter progress.Reporter
}

// New returns a scanner bound to repoPath and store. reporter may be nil,
// in which case progress.Noop is used.
func New(repoPath string, store scanstore.Store, reporter progress.Reporter) *GitScanner {
	if reporter == nil {
		reporter = progress.Noop{}
	}
	return &GitScanner{repoPath: repoPath, store: store, reporter: reporter}
}

// Scan runs the full pipeline and returns the reconstructed tree.
func (s *GitScanner) Scan() (*sizetree.TreeNode, error) {
	openHandle := s.reporter.StartPhase(progress.PhaseOpen)
	repo, err := gitobj.OpenRepository(s.repoPath)
	if err != nil {
		openHandle.Done()
		return nil, fmt.Errorf("open repository: %w", err)
	}
	headOid := repo.Head()
	if headOid == "" {
		openHandle.Done()
		return nil, fmt.Errorf("repository has no commits")
	}
	headHex := string(headOid)
	openHandle.Done()

	headCheckHandle := s.reporter.StartPhase(progress.PhaseHeadCheck)
	storedHead, ok, err := s.store.GetHeadOid()
	headCheckHandle.Done()
	if err != nil {
		return nil, fmt.Errorf("get stored head oid: %w", err)
	}
	if ok && storedHead == headHex {
		s.reporter.Message("head unchanged, nothing to scan")
		return s.store.LoadTree()
	}

	packHandle := s.reporter.StartPhase(progress.PhaseLoadPackSizes)
	psi, err := gitobj.NewPackSizeIndex(repo)
	packHandle.Done()
	if err != nil {
		return nil, fmt.Errorf("load pack sizes: %w", err)
	}

	interner := pathintern.New()

	snapshotHandle := s.reporter.StartPhase(progress.PhaseBuildHeadSnapshot)
	head, err := BuildHeadSnapshot(repo, psi, interner, headHex, headOid)
	snapshotHandle.Done()
	if err != nil {
		return nil, fmt.Errorf("build head snapshot: %w", err)
	}

	collectHandle := s.reporter.StartPhase(progress.PhaseCollectCommits)
	commits, err := repo.AncestorWalk(headOid)
	if err != nil {
		collectHandle.Done()
		return nil, fmt.Errorf("ancestor walk: %w", err)
	}
	reverseCommits(commits)
	collectHandle.Done()

	planHandle := s.reporter.StartPhase(progress.PhasePlan)
	alreadyScanned, err := s.store.LoadScannedCommits()
	if err != nil {
		planHandle.Done()
		return nil, fmt.Errorf("load scanned commits: %w", err)
	}
	commitsToScan := make([]*gitobj.Commit, 0, len(commits))
	for _, c := range commits {
		if _, done := alreadyScanned[c.ID]; !done {
			commitsToScan = append(commitsToScan, c)
		}
	}
	planHandle.Done()

	if len(commitsToScan) == 0 {
		shortCircuitHandle := s.reporter.StartPhase(progress.PhaseShortCircuit)
		if err := s.store.SetHeadOid(headHex); err != nil {
			shortCircuitHandle.Done()
			return nil, fmt.Errorf("persist head oid: %w", err)
		}
		shortCircuitHandle.Done()
		return s.store.LoadTree()
	}

	seenBlobsHandle := s.reporter.StartPhase(progress.PhaseLoadSeenBlobs)
	seenBlobs, err := s.store.LoadSeenBlobs()
	seenBlobsHandle.Done()
	if err != nil {
		return nil, fmt.Errorf("load seen blobs: %w", err)
	}

	scanHandle := s.reporter.StartPhase(progress.PhaseScan)
	ctx := NewTreeScanCtx(repo, psi, interner, head, seenBlobs)
	oids := make([]gitobj.Hash, 0, len(commitsToScan))
	for i, commit := range commitsToScan {
		ctx.ScanCommit(commit)
		oids = append(oids, commit.ID)
		s.reporter.CommitScanned(i+1, len(commitsToScan))
	}
	scanHandle.Done()

	applyHandle := s.reporter.StartPhase(progress.PhaseApply)
	err = s.store.ApplyScan(ctx.Delta(), oids, interner)
	applyHandle.Done()
	if err != nil {
		return nil, fmt.Errorf("apply scan: %w", err)
	}

	persistHandle := s.reporter.StartPhase(progress.PhasePersistHead)
	err = s.store.SetHeadOid(headHex)
	persistHandle.Done()
	if err != nil {
		return nil, fmt.Errorf("persist head oid: %w", err)
	}

	loadTreeHandle := s.reporter.StartPhase(progress.PhaseLoadTree)
	tree, err := s.store.LoadTree()
	loadTreeHandle.Done()
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	return tree, nil
}

func reverseCommits(commits []*gitobj.Commit) {
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
}

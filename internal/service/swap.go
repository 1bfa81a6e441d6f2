package service

import (
	"context"
	"time"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

type swapService struct {
	store    repository.Store
	emailSvc EmailService
	opts     options
}

func NewSwapService(store repository.Store, emailSvc EmailService, opts ...Option) SwapService {
	return &swapService{store: store, emailSvc: emailSvc, opts: buildOptions(opts)}
}

func (s *swapService) ProposeSwap(ctx context.Context, proposer string, proposerToolID int64, receiver string, receiverToolID int64) (swap *domain.Swap, err error) {
	const method = "SwapService.ProposeSwap"
	logger.EnterMethod(method, "proposer", proposer, "proposer_tool_id", proposerToolID, "receiver", receiver, "receiver_tool_id", receiverToolID)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	if proposer == receiver {
		return nil, domain.NewValidationError("cannot propose a swap with yourself")
	}

	var receiverUser, proposerUser *domain.User
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		if proposerUser, err = repos.Users().GetByUsername(ctx, proposer); err != nil {
			return err
		}
		if receiverUser, err = repos.Users().GetByUsername(ctx, receiver); err != nil {
			return err
		}
		offered, err := repos.Tools().GetByID(ctx, proposerToolID)
		if err != nil {
			return err
		}
		wanted, err := repos.Tools().GetForUpdate(ctx, receiverToolID)
		if err != nil {
			return err
		}
		if offered.OwnerUsername != proposer {
			return domain.NewValidationError("tool %d is not owned by %s", proposerToolID, proposer)
		}
		if wanted.OwnerUsername != receiver {
			return domain.NewValidationError("tool %d is not owned by %s", receiverToolID, receiver)
		}
		if !wanted.Available {
			return domain.NewNotAvailableError("tool %d is not available", receiverToolID)
		}

		swap = &domain.Swap{
			ProposerUsername: proposer,
			ProposerToolID:   proposerToolID,
			ReceiverUsername: receiver,
			ReceiverToolID:   receiverToolID,
			Status:           domain.SwapStatusPending,
			ProposedDate:     s.opts.now(),
		}
		return repos.Swaps().Create(ctx, swap)
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Swap proposed", "swap_id", swap.ID, "proposer", proposer, "receiver", receiver)
	s.opts.statusChanged("swap", string(swap.Status))
	notify(ctx, "swap proposal", func() error {
		return s.emailSvc.SendSwapProposalNotification(ctx, receiverUser, proposerUser, swap)
	})
	return swap, nil
}

func (s *swapService) RespondToSwap(ctx context.Context, swapID int64, action domain.SwapAction, actor string) (swap *domain.Swap, err error) {
	const method = "SwapService.RespondToSwap"
	logger.EnterMethod(method, "swap_id", swapID, "action", action, "actor", actor)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	if action != domain.SwapActionAccept && action != domain.SwapActionDecline {
		return nil, domain.NewValidationError("unknown swap action %q", action)
	}

	var proposerUser *domain.User
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		current, err := repos.Swaps().GetByID(ctx, swapID)
		if err != nil {
			return err
		}
		if current.ReceiverUsername != actor {
			return domain.NewUnauthorizedError("only the receiver may respond to swap %d", swapID)
		}
		if current.Status != domain.SwapStatusPending {
			return domain.NewInvalidTransitionError("swap %d is already %s", swapID, current.Status)
		}

		next := action.Result()
		patch := domain.SwapPatch{Status: &next, ExpectedVersion: current.Version}
		if next == domain.SwapStatusAccepted {
			now := s.opts.now()
			patch.AcceptedDate = &now
		}
		if swap, err = repos.Swaps().UpdateFields(ctx, swapID, patch); err != nil {
			return err
		}
		proposerUser, _ = repos.Users().GetByUsername(ctx, swap.ProposerUsername)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Swap answered", "swap_id", swap.ID, "status", swap.Status, "actor", actor)
	s.opts.statusChanged("swap", string(swap.Status))
	if proposerUser != nil {
		notify(ctx, "swap response", func() error {
			return s.emailSvc.SendSwapResponseNotification(ctx, proposerUser, swap)
		})
	}
	return swap, nil
}

func (s *swapService) ListSwaps(ctx context.Context, username string, direction domain.SwapDirection) (swaps []domain.Swap, err error) {
	const method = "SwapService.ListSwaps"
	logger.EnterMethod(method, "username", username, "direction", direction)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	var filter domain.SwapFilter
	switch direction {
	case domain.SwapDirectionIncoming:
		filter.ReceiverUsername = username
	case domain.SwapDirectionOutgoing:
		filter.ProposerUsername = username
	case domain.SwapDirectionAll, "":
		filter.Participant = username
	default:
		return nil, domain.NewValidationError("unknown swap direction %q", direction)
	}
	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		swaps, err = repos.Swaps().FindWhere(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return swaps, nil
}

func (s *swapService) GetSwap(ctx context.Context, actor string, swapID int64) (swap *domain.Swap, err error) {
	const method = "SwapService.GetSwap"
	logger.EnterMethod(method, "swap_id", swapID, "actor", actor)
	start := time.Now()
	defer func() { s.opts.finish(ctx, method, start, err) }()

	err = s.store.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		found, err := repos.Swaps().GetByID(ctx, swapID)
		if err != nil {
			return err
		}
		if found.ProposerUsername != actor && found.ReceiverUsername != actor {
			return domain.NewUnauthorizedError("%s is not a party to swap %d", actor, swapID)
		}
		swap = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return swap, nil
}

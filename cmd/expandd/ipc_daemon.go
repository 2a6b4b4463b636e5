package main

import (
	"context"
	"time"

	"expandd/internal/ipc"
	"expandd/internal/logging"
)

// HandleMessage serves the daemon side of the control socket.
func (d *daemon) HandleMessage(ctx context.Context, msg *ipc.Message) (*ipc.Message, error) {
	switch msg.Header.Type {
	case ipc.MsgStatusRequest:
		return d.handleStatus(msg)
	case ipc.MsgReloadRequest:
		return d.handleReload(msg)
	case ipc.MsgTriggersRequest:
		return d.handleTriggers(msg)
	case ipc.MsgPauseRequest:
		d.engine.Pause()
		logging.Info("matching paused via control socket")
		return ipc.NewResponse(ipc.MsgPauseResponse, msg.Header.RequestID, &ipc.PauseResponse{Paused: true})
	case ipc.MsgResumeRequest:
		d.engine.Resume()
		logging.Info("matching resumed via control socket")
		return ipc.NewResponse(ipc.MsgResumeResponse, msg.Header.RequestID, &ipc.PauseResponse{Paused: false})
	case ipc.MsgStatsRequest:
		return d.handleStats(msg)
	case ipc.MsgShutdown:
		logging.Info("shutdown requested via control socket")
		resp := ipc.NewMessage(ipc.MsgShutdownResp, msg.Header.RequestID, nil)
		// Give the response a moment to flush before the listener closes.
		go func() {
			time.Sleep(100 * time.Millisecond)
			d.shutdown()
		}()
		return resp, nil
	default:
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrInvalidRequest, "unknown message type"), nil
	}
}

func (d *daemon) handleStatus(msg *ipc.Message) (*ipc.Message, error) {
	events, expansions := d.engine.Stats()

	resp := &ipc.StatusResponse{
		Version:    version,
		StartedAt:  d.startedAt,
		UptimeSec:  int64(time.Since(d.startedAt).Seconds()),
		Paused:     d.engine.Paused(),
		Triggers:   d.engine.Rules().Len(),
		MatchDirs:  matchDirs(d.cfg),
		Backend:    d.cfg.Output.Backend,
		Keyboards:  d.source.Keyboards(),
		Events:     events,
		Expansions: expansions,
	}

	return ipc.NewResponse(ipc.MsgStatusResponse, msg.Header.RequestID, resp)
}

func (d *daemon) handleReload(msg *ipc.Message) (*ipc.Message, error) {
	n, err := d.reload()
	resp := &ipc.ReloadResponse{Success: err == nil, Triggers: n}
	if err != nil {
		resp.Error = err.Error()
	}
	return ipc.NewResponse(ipc.MsgReloadResponse, msg.Header.RequestID, resp)
}

func (d *daemon) handleTriggers(msg *ipc.Message) (*ipc.Message, error) {
	set := d.engine.Rules()

	resp := &ipc.TriggersResponse{}
	for _, t := range set.SortedTriggers() {
		rule, ok := set.Lookup(t)
		if !ok {
			continue
		}
		resp.Triggers = append(resp.Triggers, ipc.TriggerInfo{
			Trigger: t,
			Replace: rule.Replace,
		})
	}

	return ipc.NewResponse(ipc.MsgTriggersResponse, msg.Header.RequestID, resp)
}

func (d *daemon) handleStats(msg *ipc.Message) (*ipc.Message, error) {
	resp := &ipc.StatsResponse{}

	if d.store == nil {
		return ipc.NewResponse(ipc.MsgStatsResponse, msg.Header.RequestID, resp)
	}

	stats, err := d.store.Stats()
	if err != nil {
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrInternalError, err.Error()), nil
	}
	resp.TotalExpansions = stats.TotalExpansions
	resp.TotalFailures = stats.TotalFailures
	resp.FirstExpansion = stats.FirstExpansion
	resp.LastExpansion = stats.LastExpansion

	top, err := d.store.TopTriggers(10)
	if err != nil {
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrInternalError, err.Error()), nil
	}
	for _, tc := range top {
		resp.TopTriggers = append(resp.TopTriggers, ipc.TriggerCount{
			Trigger: tc.Trigger,
			Count:   tc.Count,
		})
	}

	return ipc.NewResponse(ipc.MsgStatsResponse, msg.Header.RequestID, resp)
}

// Package scheduler - именованные периодические задачи поверх gocron.
// Тег задачи = ее ID, что дает семантику замены при повторной регистрации.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

type Scheduler struct {
	cron   *gocron.Scheduler
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   gocron.NewScheduler(time.UTC),
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Start запускает тикающий цикл в фоне
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop отменяет будущие тики. Задача, которая уже выполняется,
// дорабатывает до конца.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// AddTask регистрирует периодическую задачу. Если id уже занят, старый таймер
// снимается и ставится новый - это замена, а не ошибка.
// Паника внутри callback гасится и логируется, таймер продолжает тикать.
func (s *Scheduler) AddTask(id string, period time.Duration, callback func()) error {
	_ = s.cron.RemoveByTag(id) // может и не существовать

	job, err := s.cron.Every(period).Tag(id).Do(s.guarded(id, callback))
	if err != nil {
		return fmt.Errorf("failed to schedule task %q: %w", id, err)
	}

	// Медленный проход не должен наложиться на следующий тик
	job.SingletonMode()

	s.logger.Info("✓ Задача запущена",
		slog.String("task", id),
		slog.Duration("period", period))
	return nil
}

// StopTask снимает задачу. Отсутствующий id - не ошибка.
func (s *Scheduler) StopTask(id string) {
	if err := s.cron.RemoveByTag(id); err != nil {
		return
	}
	s.logger.Info("✓ Задача остановлена", slog.String("task", id))
}

func (s *Scheduler) StopAllTasks() {
	s.cron.Clear()
	s.logger.Info("✓ Все задачи остановлены")
}

func (s *Scheduler) HasTask(id string) bool {
	jobs, err := s.cron.FindJobsByTag(id)
	return err == nil && len(jobs) > 0
}

func (s *Scheduler) TaskIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, job := range s.cron.Jobs() {
		for _, tag := range job.Tags() {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			ids = append(ids, tag)
		}
	}
	return ids
}

// RunTaskNow выполняет задачу немедленно, не сбивая ее расписание
func (s *Scheduler) RunTaskNow(id string) error {
	if !s.HasTask(id) {
		return fmt.Errorf("task not found: %s", id)
	}
	return s.cron.RunByTag(id)
}

func (s *Scheduler) guarded(id string, callback func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Паника внутри задачи",
					slog.String("task", id),
					slog.Any("panic", r))
			}
		}()
		callback()
	}
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coursecatalog/internal/model"
	"coursecatalog/internal/repository"
)

type siblingRow struct {
	id       string
	parentID string
	order    int
	active   bool
}

// siblingTable implements repository.SiblingRepository over one child map.
type siblingTable struct {
	h        *handle
	name     string
	rows     func(st *state) []siblingRow
	setOrder func(st *state, id string, order int, now time.Time)
}

func chapterSiblings(h *handle) siblingTable {
	return siblingTable{
		h:    h,
		name: "chapters",
		rows: func(st *state) []siblingRow {
			out := make([]siblingRow, 0, len(st.chapters))
			for _, ch := range st.chapters {
				out = append(out, siblingRow{ch.ID, ch.CourseID, ch.Order, ch.Lifecycle.IsActive()})
			}
			return out
		},
		setOrder: func(st *state, id string, order int, now time.Time) {
			ch := st.chapters[id]
			ch.Order, ch.UpdatedAt = order, now
			st.chapters[id] = ch
		},
	}
}

func lessonSiblings(h *handle) siblingTable {
	return siblingTable{
		h:    h,
		name: "lessons",
		rows: func(st *state) []siblingRow {
			out := make([]siblingRow, 0, len(st.lessons))
			for _, l := range st.lessons {
				out = append(out, siblingRow{l.ID, l.ChapterID, l.Order, l.Lifecycle.IsActive()})
			}
			return out
		},
		setOrder: func(st *state, id string, order int, now time.Time) {
			l := st.lessons[id]
			l.Order, l.UpdatedAt = order, now
			st.lessons[id] = l
		},
	}
}

func (t siblingTable) activeUnder(st *state, parentID string) []siblingRow {
	var out []siblingRow
	for _, r := range t.rows(st) {
		if r.parentID == parentID && r.active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

func (t siblingTable) FindActiveSiblingWithOrder(ctx context.Context, parentID string, order int, excludeIDs []string) (string, error) {
	if err := t.h.fail(t.name + ".FindActiveSiblingWithOrder"); err != nil {
		return "", err
	}
	var found string
	t.h.read(func(st *state) {
		for _, r := range t.activeUnder(st, parentID) {
			if r.order == order && !contains(excludeIDs, r.id) {
				found = r.id
				return
			}
		}
	})
	return found, nil
}

func (t siblingTable) NextOrder(ctx context.Context, parentID string) (int, error) {
	next := 1
	t.h.read(func(st *state) {
		for _, r := range t.activeUnder(st, parentID) {
			if r.order >= next {
				next = r.order + 1
			}
		}
	})
	return next, nil
}

func (t siblingTable) CountUnderParent(ctx context.Context, ids []string, parentID string) (int, error) {
	n := 0
	t.h.read(func(st *state) {
		for _, r := range t.rows(st) {
			if r.parentID == parentID && contains(ids, r.id) {
				n++
			}
		}
	})
	return n, nil
}

func (t siblingTable) LockActiveSiblings(ctx context.Context, parentID string) ([]string, error) {
	ids := []string{}
	t.h.read(func(st *state) {
		for _, r := range t.activeUnder(st, parentID) {
			ids = append(ids, r.id)
		}
	})
	return ids, nil
}

func (t siblingTable) ApplyOrder(ctx context.Context, parentID string, orderedIDs []string) error {
	return t.h.write(t.name+".ApplyOrder", func(st *state, now time.Time) error {
		for i, id := range orderedIDs {
			found := false
			for _, r := range t.rows(st) {
				if r.id == id && r.parentID == parentID {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%s %s not under %s", t.name, id, parentID)
			}
			t.setOrder(st, id, i+1, now)
		}
		return nil
	})
}

type chapterRepo struct {
	siblingTable
	h *handle
}

func (r *chapterRepo) Create(ctx context.Context, ch *model.Chapter) error {
	return r.create("chapters.Create", []*model.Chapter{ch})
}

func (r *chapterRepo) CreateBatch(ctx context.Context, chs []*model.Chapter) error {
	return r.create("chapters.CreateBatch", chs)
}

func (r *chapterRepo) create(op string, chs []*model.Chapter) error {
	return r.h.write(op, func(st *state, now time.Time) error {
		for _, ch := range chs {
			if _, ok := st.courses[ch.CourseID]; !ok {
				return fmt.Errorf("course %s does not exist", ch.CourseID)
			}
			if _, ok := st.chapters[ch.ID]; ok {
				return fmt.Errorf("duplicate chapter id %s", ch.ID)
			}
			ch.CreatedAt, ch.UpdatedAt = now, now
			stored := *ch
			stored.Lessons = nil
			st.chapters[ch.ID] = stored
		}
		return nil
	})
}

func (r *chapterRepo) GetByID(ctx context.Context, chapterID string) (*model.Chapter, error) {
	if err := r.h.fail("chapters.GetByID"); err != nil {
		return nil, err
	}
	var out *model.Chapter
	r.h.read(func(st *state) {
		if ch, ok := st.chapters[chapterID]; ok {
			out = &ch
		}
	})
	return out, nil
}

func (r *chapterRepo) GetForShare(ctx context.Context, chapterID string) (*model.Chapter, error) {
	return r.GetByID(ctx, chapterID)
}

func (r *chapterRepo) GetForUpdate(ctx context.Context, ids []string) ([]*model.Chapter, error) {
	if err := r.h.fail("chapters.GetForUpdate"); err != nil {
		return nil, err
	}
	out := []*model.Chapter{}
	r.h.read(func(st *state) {
		seen := map[string]bool{}
		for _, id := range ids {
			seen[id] = true
		}
		for _, id := range sortedIDs(seen) {
			if ch, ok := st.chapters[id]; ok {
				out = append(out, &ch)
			}
		}
	})
	return out, nil
}

func (r *chapterRepo) Update(ctx context.Context, ch *model.Chapter) error {
	return r.update("chapters.Update", []*model.Chapter{ch})
}

func (r *chapterRepo) UpdateBatch(ctx context.Context, chs []*model.Chapter) error {
	return r.update("chapters.UpdateBatch", chs)
}

func (r *chapterRepo) update(op string, chs []*model.Chapter) error {
	return r.h.write(op, func(st *state, now time.Time) error {
		for _, ch := range chs {
			stored, ok := st.chapters[ch.ID]
			if !ok {
				return fmt.Errorf("chapter %s does not exist", ch.ID)
			}
			stored.Title, stored.Description, stored.Order = ch.Title, ch.Description, ch.Order
			stored.Lifecycle, stored.UpdatedAt = ch.Lifecycle, now
			st.chapters[ch.ID] = stored
			ch.UpdatedAt = now
		}
		return nil
	})
}

func (r *chapterRepo) SetLifecycle(ctx context.Context, ids []string, lc model.Lifecycle) error {
	return r.h.write("chapters.SetLifecycle", func(st *state, now time.Time) error {
		for _, id := range ids {
			if ch, ok := st.chapters[id]; ok {
				ch.Lifecycle, ch.UpdatedAt = lc, now
				st.chapters[id] = ch
			}
		}
		return nil
	})
}

func (r *chapterRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]*model.Chapter, error) {
	out := []*model.Chapter{}
	r.h.read(func(st *state) {
		for _, row := range r.activeUnder(st, courseID) {
			ch := st.chapters[row.id]
			out = append(out, &ch)
		}
	})
	return out, nil
}

type lessonRepo struct {
	siblingTable
	h *handle
}

func (r *lessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	return r.create("lessons.Create", []*model.Lesson{l})
}

func (r *lessonRepo) CreateBatch(ctx context.Context, ls []*model.Lesson) error {
	return r.create("lessons.CreateBatch", ls)
}

func (r *lessonRepo) create(op string, ls []*model.Lesson) error {
	return r.h.write(op, func(st *state, now time.Time) error {
		for _, l := range ls {
			if _, ok := st.chapters[l.ChapterID]; !ok {
				return fmt.Errorf("chapter %s does not exist", l.ChapterID)
			}
			if _, ok := st.lessons[l.ID]; ok {
				return fmt.Errorf("duplicate lesson id %s", l.ID)
			}
			l.CreatedAt, l.UpdatedAt = now, now
			st.lessons[l.ID] = *l
		}
		return nil
	})
}

func (r *lessonRepo) GetByID(ctx context.Context, lessonID string) (*model.Lesson, error) {
	if err := r.h.fail("lessons.GetByID"); err != nil {
		return nil, err
	}
	var out *model.Lesson
	r.h.read(func(st *state) {
		if l, ok := st.lessons[lessonID]; ok {
			out = &l
		}
	})
	return out, nil
}

func (r *lessonRepo) GetForUpdate(ctx context.Context, ids []string) ([]*model.Lesson, error) {
	if err := r.h.fail("lessons.GetForUpdate"); err != nil {
		return nil, err
	}
	out := []*model.Lesson{}
	r.h.read(func(st *state) {
		seen := map[string]bool{}
		for _, id := range ids {
			seen[id] = true
		}
		for _, id := range sortedIDs(seen) {
			if l, ok := st.lessons[id]; ok {
				out = append(out, &l)
			}
		}
	})
	return out, nil
}

func (r *lessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	return r.update("lessons.Update", []*model.Lesson{l})
}

func (r *lessonRepo) UpdateBatch(ctx context.Context, ls []*model.Lesson) error {
	return r.update("lessons.UpdateBatch", ls)
}

func (r *lessonRepo) update(op string, ls []*model.Lesson) error {
	return r.h.write(op, func(st *state, now time.Time) error {
		for _, l := range ls {
			stored, ok := st.lessons[l.ID]
			if !ok {
				return fmt.Errorf("lesson %s does not exist", l.ID)
			}
			stored.Title, stored.Content, stored.Type, stored.Order = l.Title, l.Content, l.Type, l.Order
			stored.Lifecycle, stored.UpdatedAt = l.Lifecycle, now
			st.lessons[l.ID] = stored
			l.UpdatedAt = now
		}
		return nil
	})
}

func (r *lessonRepo) SetLifecycle(ctx context.Context, ids []string, lc model.Lifecycle) error {
	return r.h.write("lessons.SetLifecycle", func(st *state, now time.Time) error {
		for _, id := range ids {
			if l, ok := st.lessons[id]; ok {
				l.Lifecycle, l.UpdatedAt = lc, now
				st.lessons[id] = l
			}
		}
		return nil
	})
}

func (r *lessonRepo) ListActiveByChapter(ctx context.Context, chapterID string) ([]*model.Lesson, error) {
	out := []*model.Lesson{}
	r.h.read(func(st *state) {
		for _, row := range r.activeUnder(st, chapterID) {
			l := st.lessons[row.id]
			out = append(out, &l)
		}
	})
	return out, nil
}

func (r *lessonRepo) ArchiveActiveByChapters(ctx context.Context, chapterIDs []string, at time.Time) (repository.CascadedLessons, error) {
	out := repository.CascadedLessons{}
	err := r.h.write("lessons.ArchiveActiveByChapters", func(st *state, now time.Time) error {
		clear(out)
		for id, l := range st.lessons {
			if contains(chapterIDs, l.ChapterID) && l.Lifecycle.IsActive() {
				l.Lifecycle, l.UpdatedAt = model.Archived(at, model.CauseCascade), now
				st.lessons[id] = l
				out[l.ChapterID] = append(out[l.ChapterID], id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortGroups(out)
	return out, nil
}

func (r *lessonRepo) RestoreCascadedByChapters(ctx context.Context, chapterIDs []string) (repository.CascadedLessons, error) {
	out := repository.CascadedLessons{}
	err := r.h.write("lessons.RestoreCascadedByChapters", func(st *state, now time.Time) error {
		clear(out)
		for id, l := range st.lessons {
			if contains(chapterIDs, l.ChapterID) && l.Lifecycle.Cause() == model.CauseCascade {
				l.Lifecycle, l.UpdatedAt = model.Draft(), now
				st.lessons[id] = l
				out[l.ChapterID] = append(out[l.ChapterID], id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortGroups(out)
	return out, nil
}

func sortGroups(c repository.CascadedLessons) {
	for _, ids := range c {
		sort.Strings(ids)
	}
}

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// rotationGrace はローテーション後も旧IDを新IDへ案内する猶予時間です。
// 同一セッションの並行リクエスト（二重送信やタブ複製）が旧IDを
// 持ったまま到達してもセッションを失わないようにします。
const rotationGrace = time.Minute

// Store はセッション状態の保管を抽象化します。
// 本体をメモリ実装と差し替えてテストできるよう、各コンポーネントには
// このインターフェースを注入します。
type Store interface {
	// Get はIDに対応する状態を返します。ローテーション直後の旧IDは
	// 猶予時間内であれば新IDへ解決されるため、現在の有効なIDも返します。
	// 見つからない場合は (nil, "") を返します。
	Get(id string) (*State, string)

	// Create は新しいセッションを作成し、IDと状態を返します。
	Create(now time.Time) (string, *State)

	// Destroy はセッション状態を完全に破棄します。
	Destroy(id string)

	// Rotate は状態を維持したまま新しいIDを発行し、旧IDを無効化します。
	// 並行リクエストに対して冪等であり、既にローテーション済みのIDで
	// 呼ばれた場合は発行済みの新IDを返します。
	Rotate(id string, now time.Time) (string, bool)
}

type alias struct {
	successor string
	expiresAt time.Time
}

// MemoryStore は単一プロセス用のインメモリ Store 実装です。
// セッションごとの状態変更を直列化するため、全操作を単一のmutexで保護します。
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*State
	aliases   map[string]alias
	lastPrune time.Time
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*State),
		aliases:  make(map[string]alias),
	}
}

// Get はIDに対応する状態を返します。
func (m *MemoryStore) Get(id string) (*State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, state := m.resolveLocked(id, time.Now())
	return state, current
}

// Create は新しいセッションを作成します。
func (m *MemoryStore) Create(now time.Time) (string, *State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(now)

	id := uuid.NewString()
	state := newState(now)
	m.sessions[id] = state
	return id, state
}

// Destroy はセッション状態を破棄します。旧IDの案内も同時に消します。
func (m *MemoryStore) Destroy(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	// 旧IDから辿れる案内エントリを消しながら現在のIDまで解決する
	cur := id
	for hops := 0; hops < maxAliasHops; hops++ {
		if _, ok := m.sessions[cur]; ok {
			delete(m.sessions, cur)
			return
		}
		al, ok := m.aliases[cur]
		if !ok || now.After(al.expiresAt) {
			delete(m.aliases, cur)
			return
		}
		delete(m.aliases, cur)
		cur = al.successor
	}
}

// Rotate は状態を維持したまま新しいIDを発行します。
func (m *MemoryStore) Rotate(id string, now time.Time) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, state := m.resolveLocked(id, now)
	if state == nil {
		return "", false
	}
	if current != id {
		// 並行リクエストが既にローテーション済み。発行済みの新IDを返すだけ。
		return current, true
	}

	newID := uuid.NewString()
	delete(m.sessions, current)
	m.sessions[newID] = state
	m.aliases[current] = alias{successor: newID, expiresAt: now.Add(rotationGrace)}
	state.touchRotated(now)
	return newID, true
}

// maxAliasHops は案内エントリを辿る上限です。猶予時間内に複数回
// ローテーションした場合の連鎖に備えます。
const maxAliasHops = 8

func (m *MemoryStore) resolveLocked(id string, now time.Time) (string, *State) {
	cur := id
	for hops := 0; hops < maxAliasHops; hops++ {
		if state, ok := m.sessions[cur]; ok {
			return cur, state
		}
		al, ok := m.aliases[cur]
		if !ok || now.After(al.expiresAt) {
			return "", nil
		}
		cur = al.successor
	}
	return "", nil
}

// pruneLocked は期限切れのセッションと案内エントリを遅延回収します。
// バックグラウンドタイマーは持たず、セッション作成のついでに実行します。
func (m *MemoryStore) pruneLocked(now time.Time) {
	if now.Sub(m.lastPrune) < time.Minute {
		return
	}
	m.lastPrune = now

	for id, state := range m.sessions {
		if state.Expired(now) {
			delete(m.sessions, id)
		}
	}
	for id, al := range m.aliases {
		if now.After(al.expiresAt) {
			delete(m.aliases, id)
		}
	}
}

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"kbagent/internal/vector"
)

const onnxSeqLen = 128

// ONNXConfig configures the locally hosted embedding model.
type ONNXConfig struct {
	ModelPath     string
	TokenizerPath string
	SharedLibPath string
	Dimension     int
	MaxInputChars int
}

// ONNXProvider runs a sentence-transformer ONNX model locally. The runtime
// environment, tokenizer, and session are loaded lazily on first use; the
// once guard makes concurrent first calls initialize exactly one shared
// model handle. Inference calls after init are serialized on the session
// mutex because the session owns fixed input/output tensors.
type ONNXProvider struct {
	cfg ONNXConfig

	initOnce sync.Once
	initErr  error

	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *wordPieceTokenizer
}

func NewONNXProvider(cfg ONNXConfig) *ONNXProvider {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}
	return &ONNXProvider{cfg: cfg}
}

func (p *ONNXProvider) Dimension() int {
	return p.cfg.Dimension
}

func (p *ONNXProvider) init() error {
	p.initOnce.Do(func() {
		if p.cfg.ModelPath == "" || p.cfg.TokenizerPath == "" {
			p.initErr = fmt.Errorf("%w: onnx model/tokenizer path not configured", ErrUnavailable)
			return
		}
		if p.cfg.SharedLibPath != "" {
			ort.SetSharedLibraryPath(p.cfg.SharedLibPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			p.initErr = fmt.Errorf("%w: onnx init environment: %v", ErrUnavailable, err)
			return
		}

		tokenizer, err := loadWordPieceTokenizer(p.cfg.TokenizerPath)
		if err != nil {
			p.initErr = fmt.Errorf("%w: load tokenizer: %v", ErrUnavailable, err)
			return
		}

		session, err := ort.NewDynamicAdvancedSession(p.cfg.ModelPath,
			[]string{"input_ids", "attention_mask", "token_type_ids"},
			[]string{"last_hidden_state"},
			nil,
		)
		if err != nil {
			p.initErr = fmt.Errorf("%w: onnx new session: %v", ErrUnavailable, err)
			return
		}

		p.tokenizer = tokenizer
		p.session = session
	})
	return p.initErr
}

// Embed tokenizes text, runs the model, mean-pools the token states, and
// returns the L2-normalized sentence vector.
func (p *ONNXProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	text, err := PrepareInput(text, p.cfg.MaxInputChars)
	if err != nil {
		return nil, err
	}
	if err := p.init(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	inputIDs, attentionMask := p.tokenizer.encode(text, onnxSeqLen)
	tokenTypeIDs := make([]int64, onnxSeqLen)

	shape := ort.NewShape(1, onnxSeqLen)
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: input_ids tensor: %v", ErrUnavailable, err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("%w: attention_mask tensor: %v", ErrUnavailable, err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: token_type_ids tensor: %v", ErrUnavailable, err)
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	p.mu.Lock()
	err = p.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: onnx run: %v", ErrUnavailable, err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok || outTensor == nil {
		return nil, fmt.Errorf("%w: unexpected onnx output tensor", ErrUnavailable)
	}

	pooled, err := meanPool(outTensor.GetData(), outTensor.GetShape(), attentionMask, p.cfg.Dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	normalized, ok2 := vector.Normalize(pooled)
	if !ok2 {
		return nil, fmt.Errorf("%w: model produced a zero vector", ErrUnavailable)
	}
	return normalized, nil
}

// meanPool reduces [1, seq, hidden] token states to a sentence vector over
// the attended positions. A [1, hidden] output is already pooled.
func meanPool(data []float32, shape []int64, attentionMask []int64, dim int) ([]float32, error) {
	switch len(shape) {
	case 2:
		if len(data) < dim {
			return nil, fmt.Errorf("pooled output dimension %d < %d", len(data), dim)
		}
		out := make([]float32, dim)
		copy(out, data[:dim])
		return out, nil
	case 3:
		seqLen := int(shape[1])
		hidden := int(shape[2])
		if hidden != dim {
			return nil, fmt.Errorf("hidden size %d != configured dimension %d", hidden, dim)
		}
		out := make([]float32, dim)
		var attended float32
		for i := 0; i < seqLen && i < len(attentionMask); i++ {
			if attentionMask[i] == 0 {
				continue
			}
			attended++
			base := i * hidden
			for j := 0; j < dim; j++ {
				out[j] += data[base+j]
			}
		}
		if attended == 0 {
			return nil, fmt.Errorf("no attended tokens")
		}
		for j := range out {
			out[j] /= attended
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
}

// wordPieceTokenizer is a minimal BERT-style WordPiece tokenizer backed by
// a HuggingFace tokenizer.json vocabulary.
type wordPieceTokenizer struct {
	vocab    map[string]int
	clsToken int64
	sepToken int64
	unkToken int64
}

func loadWordPieceTokenizer(path string) (*wordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer vocab is empty")
	}
	return &wordPieceTokenizer{
		vocab:    parsed.Model.Vocab,
		clsToken: 101,
		sepToken: 102,
		unkToken: 100,
	}, nil
}

// encode produces fixed-length input_ids and attention_mask with [CLS] and
// [SEP] framing, truncating to maxLen.
func (t *wordPieceTokenizer) encode(text string, maxLen int) ([]int64, []int64) {
	tokens := t.tokenize(text)
	if len(tokens) > maxLen-2 {
		tokens = tokens[:maxLen-2]
	}

	inputIDs := make([]int64, maxLen)
	attentionMask := make([]int64, maxLen)

	inputIDs[0] = t.clsToken
	attentionMask[0] = 1
	for i, id := range tokens {
		inputIDs[i+1] = id
		attentionMask[i+1] = 1
	}
	inputIDs[len(tokens)+1] = t.sepToken
	attentionMask[len(tokens)+1] = 1
	return inputIDs, attentionMask
}

func (t *wordPieceTokenizer) tokenize(text string) []int64 {
	var tokens []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		for _, piece := range t.wordPieces(word) {
			if id, ok := t.vocab[piece]; ok {
				tokens = append(tokens, int64(id))
			} else {
				tokens = append(tokens, t.unkToken)
			}
		}
	}
	return tokens
}

// wordPieces splits a word greedily into the longest vocab prefixes, using
// the ## continuation marker after the first piece.
func (t *wordPieceTokenizer) wordPieces(word string) []string {
	var pieces []string
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if _, ok := t.vocab[piece]; ok {
				pieces = append(pieces, piece)
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			pieces = append(pieces, "[UNK]")
			start++
		}
	}
	return pieces
}

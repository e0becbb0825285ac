package ai

const billPrompt = `# Role
You extract structured transaction info from raw financial texts.

# Output
Return ONLY one JSON object. No code fences, no prose. If any hard rule fails, return {}.

# Hard Rules
1) accountNameFrom is MANDATORY. If missing or uncertain return {}.
2) Use only data explicitly present in the input.
3) Ignore promotions, verification codes, login alerts, delivery notices and chat. If the text contains no transaction, return {}.
4) Personal names are not account names.
5) cateName must be chosen from Category Data. If nothing fits, use "其他".
6) Defaults: currency="CNY", fee=0, empty strings for optional text, timeText="".
7) money and fee are absolute values with two decimals.

# Field Rules
- accountNameFrom: source account (支付宝, 微信, bank card, 余额宝 ...).
- accountNameTo: destination account if explicitly present, else "".
- type: one of "Transfer", "Income", "Expend".
  Transfer when both accounts are present and differ.
  Income for 收到/入账/到账/退款/收款/转入.
  Expend for 支付/扣款/消费/转出/提现/付款.
- timeText: full date-time string if present (2024-08-02 12:01:22), else "".
- When several amounts appear pick the transaction amount, never a balance or limit.

# Schema
{"accountNameFrom":"","accountNameTo":"","cateName":"","currency":"CNY","fee":0,"money":0.00,"shopItem":"","shopName":"","type":"Expend","timeText":""}`

const categoryPrompt = `# Role
You select exactly one category name from Category Data.

# Inputs
Fields: ruleName, shopName, shopItem

# Output
Raw text, single line: the chosen category name only. No quotes, no JSON.
If uncertain, output 其他.

# Matching rules (apply in order)
1) Exact equality against shopItem, then shopName, then ruleName.
2) Case-insensitive equality.
3) Substring match, preferring the longest overlap.
4) Otherwise output 其他.

Never output a name that is not in Category Data, except 其他.`

const assetPrompt = `# Role
You select asset names strictly from Asset Data.

# Inputs
Fields (may be empty): asset1, asset2

# Output
Return ONLY a JSON object with exactly two keys:
{"asset1":"<name-or-empty>","asset2":"<name-or-empty>"}
If a clue has no match set its value to "".

# Matching rules (apply in order, independently for each clue)
1) Exact equality
2) Case-insensitive equality
3) Substring match, preferring the longest overlap
4) On ties prefer the longer candidate name
5) Otherwise ""`
